package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/moderation"
	"github.com/cppla/inkwell/ratelimit"
	"github.com/cppla/inkwell/utils"
)

const (
	DefaultCommentWindow = 15 * time.Minute
	DefaultCommentMax    = 5
)

// SubmitInput is one visitor comment. ClientID is the opaque client identifier.
type SubmitInput struct {
	ClientID string `json:"-" validate:"-"`
	PostID   uint   `json:"postId" validate:"gt=0"`
	Author   string `json:"author" validate:"required,min=1,max=50"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Content  string `json:"content" validate:"required,min=1,max=1000"`
}

// CommentPipeline accepts visitor comments into the moderation queue.
type CommentPipeline struct {
	limiter    ratelimit.Limiter
	classifier *moderation.Classifier
	posts      PostLookup
	store      CommentStore
	notifier   Notifier
	logger     *zap.Logger
	validate   *validator.Validate
	sanitize   func(string) string
	now        func() time.Time
	window     time.Duration
	max        int
}

// PipelineOption configures a CommentPipeline.
type PipelineOption func(*CommentPipeline)

// WithNotifier announces every accepted comment to n.
func WithNotifier(n Notifier) PipelineOption {
	return func(p *CommentPipeline) { p.notifier = n }
}

// WithClock replaces time.Now for timestamps and retry hints.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *CommentPipeline) { p.now = now }
}

// WithLimits overrides the per-client submission window.
func WithLimits(window time.Duration, max int) PipelineOption {
	return func(p *CommentPipeline) {
		p.window = window
		p.max = max
	}
}

// WithSanitizer replaces the plain-text reduction applied to author and content.
func WithSanitizer(fn func(string) string) PipelineOption {
	return func(p *CommentPipeline) { p.sanitize = fn }
}

func NewCommentPipeline(limiter ratelimit.Limiter, classifier *moderation.Classifier, posts PostLookup, store CommentStore, logger *zap.Logger, opts ...PipelineOption) *CommentPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &CommentPipeline{
		limiter:    limiter,
		classifier: classifier,
		posts:      posts,
		store:      store,
		logger:     logger,
		validate:   newValidator(),
		sanitize:   utils.StripTags,
		now:        time.Now,
		window:     DefaultCommentWindow,
		max:        DefaultCommentMax,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Classifier returns the denylist the pipeline screens against.
func (p *CommentPipeline) Classifier() *moderation.Classifier { return p.classifier }

// Submit throttles then accepts one comment. Callers that decode the request body
// themselves should call Throttle before decoding and Accept afterwards.
func (p *CommentPipeline) Submit(ctx context.Context, in SubmitInput) (*models.PublicComment, error) {
	if err := p.Throttle(ctx, in.ClientID); err != nil {
		return nil, err
	}
	return p.Accept(ctx, in)
}

// Throttle counts one submission attempt by clientID. Every attempt counts, including
// ones whose body later turns out to be malformed.
func (p *CommentPipeline) Throttle(ctx context.Context, clientID string) error {
	res, err := p.limiter.Allow(ctx, "comment:"+clientID, p.window, p.max)
	if err != nil {
		p.logger.Error("comment rate limit check failed", zap.Error(err))
		return internalError(err)
	}
	if res.Allowed {
		return nil
	}
	retry := res.ResetTime.Sub(p.now())
	if retry < 0 {
		retry = 0
	}
	minutes := int(math.Ceil(retry.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return &Rejection{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("too many comments, please try again in %d minute(s)", minutes),
		RetryAfter: retry,
		Remaining:  0,
	}
}

// Accept validates a throttled submission, checks the post and the denylist, then stores
// it as PENDING. Author and content are reduced to plain text first, so the limits and
// the denylist apply to exactly what gets stored. Every failure is a *Rejection and
// writes nothing.
func (p *CommentPipeline) Accept(ctx context.Context, in SubmitInput) (*models.PublicComment, error) {
	rawAuthor, rawContent := in.Author, in.Content
	in.Author = strings.TrimSpace(p.sanitize(strings.TrimSpace(in.Author)))
	in.Content = strings.TrimSpace(p.sanitize(strings.TrimSpace(in.Content)))
	in.Email = strings.TrimSpace(in.Email)
	if fields := p.check(in); len(fields) > 0 {
		return nil, &Rejection{Code: CodeValidationError, Message: "please check your input", Fields: fields}
	}

	ok, err := p.posts.PublishedPostExists(ctx, in.PostID)
	if err != nil {
		p.logger.Error("post lookup failed", zap.Uint("post_id", in.PostID), zap.Error(err))
		return nil, internalError(err)
	}
	if !ok {
		return nil, &Rejection{Code: CodePostNotFound, Message: "post does not exist or is not published"}
	}

	if p.sensitive(in.Content, rawContent) || p.sensitive(in.Author, rawAuthor) {
		return nil, &Rejection{Code: CodeContentRejected, Message: "comment contains sensitive words, please revise it"}
	}

	c := &models.Comment{
		PostID:    in.PostID,
		Author:    in.Author,
		Email:     in.Email,
		Content:   in.Content,
		Status:    models.CommentPending,
		IPHash:    in.ClientID,
		CreatedAt: p.now(),
	}
	if err := p.store.Create(ctx, c); err != nil {
		p.logger.Error("failed to store comment", zap.Uint("post_id", in.PostID), zap.Error(err))
		return nil, internalError(err)
	}

	verdict := p.classifier.Evaluate(moderation.Input{Content: c.Content, Author: c.Author, Email: c.Email})
	p.logger.Info("comment submitted",
		zap.Uint("comment_id", c.ID),
		zap.Uint("post_id", c.PostID),
		zap.Bool("spam_advisory", verdict.Spam),
		zap.String("spam_rule", verdict.Rule),
	)
	if p.notifier != nil {
		p.notifier.CommentSubmitted(*c)
	}

	out := c.Public()
	return &out, nil
}

// sensitive checks both the stored text and the raw input, so a word split by markup
// and a word hidden inside markup are both caught.
func (p *CommentPipeline) sensitive(plain, raw string) bool {
	return p.classifier.ContainsSensitiveWords(plain) || p.classifier.ContainsSensitiveWords(raw)
}

func (p *CommentPipeline) check(in SubmitInput) []FieldError {
	err := p.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Rule: "invalid", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be a positive integer"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be a valid email address"
	}
	return fe.Field() + " is invalid"
}

// newValidator reports field names using their json tags.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
