package utils

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/inkwell/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetRedis(rc)
	t.Cleanup(func() {
		SetRedis(nil)
		_ = rc.Close()
	})
	return mr
}

func TestHashClientIP(t *testing.T) {
	a := HashClientIP("secret", "203.0.113.7")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashClientIP("secret", " 203.0.113.7 "))
	assert.NotEqual(t, a, HashClientIP("secret", "203.0.113.8"))
	assert.NotEqual(t, a, HashClientIP("other", "203.0.113.7"))
	assert.NotContains(t, a, "203.0.113.7")
}

func TestUniqueUint(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, UniqueUint(nil))
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<b>hello</b><script>alert(1)</script>", "hello"},
		{"buy sp<b></b>am now", "buy spam now"},
		{"Tom's <3 post", "Tom's <3 post"},
		{"fish & chips", "fish & chips"},
		{`say "hi"`, `say "hi"`},
		{"&lt;b&gt;bold&lt;/b&gt;", "bold"},
		{"&amp;lt;i&amp;gt;x", "x"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripTags(tt.in), tt.in)
	}
	assert.Equal(t, strings.Repeat("&", 1000), StripTags(strings.Repeat("&", 1000)))
}

func TestSanitize(t *testing.T) {
	out := Sanitize(`<h2 id="intro">Intro</h2><script>x()</script><a href="javascript:alert(1)">x</a>`)
	assert.Contains(t, out, `<h2 id="intro">Intro</h2>`)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "javascript:")
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))

	_, err = HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.False(t, CheckPassword(hash, strings.Repeat("x", 73)))
}

func TestTokenRoundTrip(t *testing.T) {
	config.Set(config.AppConfig{App: config.AppSection{JWTSecret: "test-secret"}})

	token, exp, err := GenerateToken(7, "admin", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.NotEmpty(t, claims.ID)

	config.Set(config.AppConfig{App: config.AppSection{JWTSecret: "rotated"}})
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	config.Set(config.AppConfig{App: config.AppSection{JWTSecret: "test-secret"}})
	token, _, err := GenerateToken(1, "admin", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestBlacklist_Memory(t *testing.T) {
	SetRedis(nil)
	BlacklistToken("tok-live", time.Now().Add(time.Hour))
	BlacklistToken("tok-dead", time.Now().Add(-time.Hour))

	assert.True(t, IsTokenBlacklisted("tok-live"))
	assert.False(t, IsTokenBlacklisted("tok-dead"))
	assert.False(t, IsTokenBlacklisted("tok-unknown"))
}

func TestPurgeExpiredTokens(t *testing.T) {
	SetRedis(nil)
	blacklistMu.Lock()
	blacklist["tok-old"] = time.Now().Add(-time.Second)
	blacklistMu.Unlock()
	BlacklistToken("tok-new", time.Now().Add(time.Hour))

	assert.GreaterOrEqual(t, PurgeExpiredTokens(), 1)
	assert.True(t, IsTokenBlacklisted("tok-new"))
	blacklistMu.Lock()
	_, stale := blacklist["tok-old"]
	blacklistMu.Unlock()
	assert.False(t, stale)
}

func TestBlacklist_Redis(t *testing.T) {
	mr := withRedis(t)
	BlacklistToken("tok-r", time.Now().Add(time.Minute))

	assert.True(t, mr.Exists(blacklistPrefix+"tok-r"))
	assert.True(t, IsTokenBlacklisted("tok-r"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, IsTokenBlacklisted("tok-r"))
}

func TestCache_NoRedisIsNoop(t *testing.T) {
	SetRedis(nil)
	CacheSetBytes("k", []byte("v"), time.Minute)
	_, ok := CacheGetBytes("k")
	assert.False(t, ok)
	InvalidatePostCaches()
}

func TestCache_SetGetInvalidate(t *testing.T) {
	mr := withRedis(t)

	CacheSuccess(CachePrefixPostList+"page=1", map[string]int{"n": 1}, time.Minute)
	CacheSetBytes(CachePrefixPostDetail+"hello", []byte("x"), 0)
	CacheSetBytes("unrelated", []byte("y"), time.Minute)

	b, ok := CacheGetBytes(CachePrefixPostList + "page=1")
	require.True(t, ok)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"n":1}}`, string(b))
	assert.Equal(t, defaultCacheTTL, mr.TTL(CachePrefixPostDetail+"hello"))

	InvalidatePostCaches()
	assert.False(t, mr.Exists(CachePrefixPostList+"page=1"))
	assert.False(t, mr.Exists(CachePrefixPostDetail+"hello"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestReject(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Reject(ctx, http.StatusTooManyRequests, 42910, "RATE_LIMITED", "slow down", map[string]int{"remaining": 0})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"code":42910,"message":"slow down","error":"RATE_LIMITED","data":{"remaining":0}}`, rec.Body.String())
}

func TestSuccessOmitsReason(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	Success(ctx, []int{1})
	assert.JSONEq(t, `{"code":0,"message":"success","data":[1]}`, rec.Body.String())
}

func TestMailer(t *testing.T) {
	m := NewMailer(config.SMTPSection{})
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send("a@example.com", "s", "b"), ErrMailerDisabled)

	msg := string(buildMessage(config.SMTPSection{From: "blog@example.com"}, "me@example.com", "新评论", "body"))
	assert.Contains(t, msg, "To: me@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?UTF-8?b?")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nbody"))
}

func TestInitRedisDisabled(t *testing.T) {
	rc, err := InitRedis(config.RedisSection{Enabled: false})
	assert.NoError(t, err)
	assert.Nil(t, rc)
}

func TestServeListener_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hookRan := make(chan struct{})
	done := make(chan error, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	go func() { done <- ServeListener(ctx, ln, handler, func() { close(hookRan) }) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	<-hookRan
}
