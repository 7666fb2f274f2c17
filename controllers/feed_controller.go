package controllers

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
	"github.com/cppla/inkwell/repository"
	"github.com/cppla/inkwell/utils"
)

const (
	feedItems        = 20
	feedCacheControl = "public, max-age=3600, s-maxage=3600"
)

// SiteSettingsSource yields the current site settings.
type SiteSettingsSource interface {
	Load(ctx context.Context) (models.SiteSettings, error)
}

// FeedController renders the RSS feed and the sitemap.
type FeedController struct {
	posts      *repository.PostRepository
	categories *repository.CategoryRepository
	tags       *repository.TagRepository
	settings   SiteSettingsSource
	baseURL    string
	now        func() time.Time
	logger     *zap.Logger
}

func NewFeedController(
	posts *repository.PostRepository,
	categories *repository.CategoryRepository,
	tags *repository.TagRepository,
	settings SiteSettingsSource,
	baseURL string,
	logger *zap.Logger,
) *FeedController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedController{
		posts:      posts,
		categories: categories,
		tags:       tags,
		settings:   settings,
		baseURL:    baseURL,
		now:        time.Now,
		logger:     logger,
	}
}

type cdata struct {
	Text string `xml:",cdata"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssItem struct {
	Title       cdata    `xml:"title"`
	Description cdata    `xml:"description"`
	Content     cdata    `xml:"content:encoded"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Description   string    `xml:"description"`
	Link          string    `xml:"link"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type rssFeed struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	ContentNS string     `xml:"xmlns:content,attr"`
	AtomNS    string     `xml:"xmlns:atom,attr"`
	Channel   rssChannel `xml:"channel"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// site returns settings and the absolute base URL; a stored base_url wins over config.
func (f *FeedController) site(ctx context.Context) (models.SiteSettings, string) {
	settings := models.DefaultSiteSettings()
	if f.settings != nil {
		s, err := f.settings.Load(ctx)
		if err != nil {
			f.logger.Warn("feed settings unavailable, using defaults", zap.Error(err))
		} else {
			settings = s
		}
	}
	base := settings.BaseURL
	if base == "" {
		base = f.baseURL
	}
	return settings, strings.TrimRight(base, "/")
}

// RSS serves /feed.xml with the latest published posts.
func (f *FeedController) RSS(ctx *gin.Context) {
	const cacheKey = utils.CachePrefixFeed + "rss"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		f.writeXML(ctx, "application/rss+xml; charset=utf-8", b)
		return
	}

	c := ctx.Request.Context()
	posts, err := f.posts.LatestPublished(c, feedItems)
	if err != nil {
		f.logger.Error("load feed posts failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	settings, base := f.site(c)
	now := f.now()

	feed := rssFeed{
		Version:   "2.0",
		ContentNS: "http://purl.org/rss/1.0/modules/content/",
		AtomNS:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:         settings.Title,
			Description:   settings.Description,
			Link:          base,
			Language:      "zh-CN",
			LastBuildDate: now.UTC().Format(time.RFC1123Z),
			AtomLink:      atomLink{Href: base + "/feed.xml", Rel: "self", Type: "application/rss+xml"},
			Items:         make([]rssItem, 0, len(posts)),
		},
	}
	for _, p := range posts {
		link := base + "/post/" + p.Slug
		pub := now
		if p.PublishedAt != nil {
			pub = *p.PublishedAt
		}
		item := rssItem{
			Title:       cdata{p.Title},
			Description: cdata{p.Summary},
			Content:     cdata{p.ContentHTML},
			Link:        link,
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			PubDate:     pub.UTC().Format(time.RFC1123Z),
		}
		for _, cat := range p.Categories {
			item.Categories = append(item.Categories, cat.Name)
		}
		feed.Channel.Items = append(feed.Channel.Items, item)
	}

	b, err := marshalXML(feed)
	if err != nil {
		f.logger.Error("encode feed failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	utils.CacheSetBytes(cacheKey, b, time.Hour)
	f.writeXML(ctx, "application/rss+xml; charset=utf-8", b)
}

// Sitemap serves /sitemap.xml with the static pages, posts, categories and tags.
func (f *FeedController) Sitemap(ctx *gin.Context) {
	const cacheKey = utils.CachePrefixFeed + "sitemap"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		f.writeXML(ctx, "application/xml; charset=utf-8", b)
		return
	}

	c := ctx.Request.Context()
	posts, err := f.posts.PublishedSummaries(c)
	if err != nil {
		f.logger.Error("load sitemap posts failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	cats, err := f.categories.ListWithCounts(c)
	if err != nil {
		f.logger.Error("load sitemap categories failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	tags, err := f.tags.ListWithCounts(c)
	if err != nil {
		f.logger.Error("load sitemap tags failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}

	_, base := f.site(c)
	now := f.now().UTC().Format(time.RFC3339)
	set := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: base, LastMod: now, ChangeFreq: "daily", Priority: "1.0"},
			{Loc: base + "/archive", LastMod: now, ChangeFreq: "weekly", Priority: "0.8"},
			{Loc: base + "/about", LastMod: now, ChangeFreq: "monthly", Priority: "0.6"},
		},
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/post/" + p.Slug,
			LastMod:    p.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "monthly",
			Priority:   "0.9",
		})
	}
	for _, cat := range cats {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/categories/" + cat.Slug, LastMod: now, ChangeFreq: "weekly", Priority: "0.7"})
	}
	for _, t := range tags {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/tags/" + t.Slug, LastMod: now, ChangeFreq: "weekly", Priority: "0.7"})
	}

	b, err := marshalXML(set)
	if err != nil {
		f.logger.Error("encode sitemap failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	utils.CacheSetBytes(cacheKey, b, time.Hour)
	f.writeXML(ctx, "application/xml; charset=utf-8", b)
}

func (f *FeedController) writeXML(ctx *gin.Context, contentType string, b []byte) {
	ctx.Header("Cache-Control", feedCacheControl)
	ctx.Data(http.StatusOK, contentType, b)
}

func marshalXML(v interface{}) ([]byte, error) {
	b, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}
