// ABOUTME: Per-request orchestration of pacing, credential resolution, media
// ABOUTME: upload, the post call itself, and thread reply chaining.
package poster

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/2389-research/tern/internal/auth"
	"github.com/2389-research/tern/internal/metrics"
	"github.com/2389-research/tern/internal/models"
	"github.com/2389-research/tern/internal/pacing"
	"github.com/2389-research/tern/internal/storage"
	"github.com/2389-research/tern/internal/twitter"
)

// ClientFactory builds a platform client for one access token.
type ClientFactory func(accessToken string) *twitter.Client

// PostResult is one successfully posted tweet with its shareable URL.
type PostResult struct {
	TweetID string
	URL     string
}

// Poster orchestrates posting operations against the platform.
type Poster struct {
	cache     *auth.Cache
	pacer     *pacing.Pacer
	refresher *auth.Refresher
	history   storage.HistoryStore
	validate  *validator.Validate
	logger    *slog.Logger
	newClient ClientFactory
	mediaHTTP *http.Client
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures optional Poster dependencies.
type Option func(*Poster)

// WithHistory records successful posts to the given store (best-effort).
func WithHistory(h storage.HistoryStore) Option {
	return func(p *Poster) { p.history = h }
}

// WithClientFactory overrides how platform clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(p *Poster) { p.newClient = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poster) { p.logger = l }
}

// WithMediaHTTPClient sets the client used to fetch remote media sources.
func WithMediaHTTPClient(c *http.Client) Option {
	return func(p *Poster) { p.mediaHTTP = c }
}

// withSleep overrides the pacing wait, for tests.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poster) { p.sleep = fn }
}

// New creates a Poster over the given cache, pacer, and refresher.
func New(cache *auth.Cache, pacer *pacing.Pacer, refresher *auth.Refresher, opts ...Option) *Poster {
	p := &Poster{
		cache:     cache,
		pacer:     pacer,
		refresher: refresher,
		validate:  validator.New(),
		logger:    slog.Default(),
		newClient: func(accessToken string) *twitter.Client {
			return twitter.NewClient("", "", accessToken)
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PostTweet posts a single tweet and returns its identifier and share URL.
func (p *Poster) PostTweet(ctx context.Context, req *models.TweetRequest, caller *models.CallerContext) (*PostResult, error) {
	id, client, err := p.postOnce(ctx, req, caller)
	if err != nil {
		return nil, err
	}
	url := p.shareURLs(ctx, client, []string{id})[0]
	p.recordHistory(req, caller, id, url)
	return &PostResult{TweetID: id, URL: url}, nil
}

// PostThread posts tweets sequentially, chaining each as a reply to the
// previous one. On a mid-thread failure the already-posted results are
// returned along with the error; there is no rollback.
func (p *Poster) PostThread(ctx context.Context, tweets []models.TweetRequest, caller *models.CallerContext) ([]PostResult, error) {
	thread := models.ThreadRequest{Tweets: tweets}
	if err := p.validate.Struct(&thread); err != nil {
		return nil, twitter.WrapError(twitter.KindInvalidParameters, err, "invalid thread")
	}

	var (
		results []PostResult
		client  *twitter.Client
		replyTo string
	)
	for i := range tweets {
		req := tweets[i]
		if replyTo != "" {
			req.ReplyToTweetID = replyTo
		}
		id, c, err := p.postOnce(ctx, &req, caller)
		if err != nil {
			return p.finishThread(ctx, client, tweets, results, caller), err
		}
		client = c
		replyTo = id
		results = append(results, PostResult{TweetID: id})
	}

	return p.finishThread(ctx, client, tweets, results, caller), nil
}

// finishThread resolves the caller's profile once and fills in share URLs.
func (p *Poster) finishThread(ctx context.Context, client *twitter.Client, tweets []models.TweetRequest, results []PostResult, caller *models.CallerContext) []PostResult {
	if len(results) == 0 {
		return results
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.TweetID
	}
	urls := p.shareURLs(ctx, client, ids)
	for i := range results {
		results[i].URL = urls[i]
		p.recordHistory(&tweets[i], caller, results[i].TweetID, results[i].URL)
	}
	return results
}

// postOnce runs the full single-tweet flow and returns the new tweet id along
// with the client used, so thread posting can reuse it for the profile lookup.
func (p *Poster) postOnce(ctx context.Context, req *models.TweetRequest, caller *models.CallerContext) (string, *twitter.Client, error) {
	// 1. Wait out the pacing gate. Only identified callers are paced.
	if caller.HasIdentity() {
		if d := p.pacer.CanSend(caller.Key()); !d.Allowed {
			p.logger.Info("pacing post", "key", caller.Key(), "wait", d.Wait)
			metrics.PacingWaitSeconds.Observe(d.Wait.Seconds())
			if err := p.sleep(ctx, d.Wait); err != nil {
				return "", nil, twitter.WrapError(twitter.KindInternal, err, "cancelled while pacing")
			}
		}
	} else {
		p.logger.Warn("request has no user_id/server_id; sharing the anonymous identity key")
	}

	// 2. Resolve a usable client credential.
	client, err := p.resolveClient(ctx, caller)
	if err != nil {
		return "", nil, err
	}

	// 3. Validate the payload shape.
	if err := p.validate.Struct(req); err != nil {
		return "", nil, twitter.WrapError(twitter.KindInvalidParameters, err, "invalid tweet")
	}

	// 4. Upload media.
	mediaIDs, err := p.uploadMedia(ctx, client, req)
	if err != nil {
		return "", nil, err
	}

	// 5. Issue the post.
	id, err := client.PostTweet(ctx, req.Text, req.ReplyToTweetID, mediaIDs)
	if err != nil {
		metrics.PostFailures.Inc()
		return "", nil, err
	}

	// 6. Advance the pacing gate only after success.
	if caller.HasIdentity() {
		p.pacer.RecordSend(caller.Key(), p.pacer.NextDelay())
	}
	metrics.TweetsPosted.Inc()
	return id, client, nil
}

// resolveClient returns a platform client holding a usable access token:
// cached if unexpired, else the caller's pre-supplied token, else a fresh
// refresh-token grant whose result populates the cache.
func (p *Poster) resolveClient(ctx context.Context, caller *models.CallerContext) (*twitter.Client, error) {
	key := caller.Key()

	if cred, ok := p.cache.GetValid(key); ok {
		return p.newClient(cred.AccessToken), nil
	}

	if caller.AccessToken != "" {
		return p.newClient(caller.AccessToken), nil
	}

	if !caller.CanRefresh() {
		return nil, twitter.NewError(twitter.KindAuthentication,
			"missing credentials: provide an access token or client id, client secret, and refresh token")
	}

	tok, err := p.refresher.Refresh(ctx,
		auth.OAuthConfig{ClientID: caller.ClientID, ClientSecret: caller.ClientSecret},
		caller.RefreshToken, caller.UserID, caller.ServerID, caller.UpdateConfigURL)
	if err != nil {
		return nil, twitter.WrapError(twitter.KindAuthentication, err, "failed to refresh access token")
	}

	p.cache.Put(key, auth.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt,
	})
	return p.newClient(tok.AccessToken), nil
}

// uploadMedia resolves and uploads the request's media sources. Individual
// failures are skipped; zero successes out of a nonzero request is fatal.
func (p *Poster) uploadMedia(ctx context.Context, client *twitter.Client, req *models.TweetRequest) ([]string, error) {
	images := req.Images
	if len(images) > twitter.MaxImagesPerTweet {
		p.logger.Warn("truncating images", "supplied", len(images), "max", twitter.MaxImagesPerTweet)
		images = images[:twitter.MaxImagesPerTweet]
	}
	videos := req.Videos
	if len(videos) > twitter.MaxVideosPerTweet {
		p.logger.Warn("truncating videos", "supplied", len(videos), "max", twitter.MaxVideosPerTweet)
		videos = videos[:twitter.MaxVideosPerTweet]
	}

	requested := len(images) + len(videos)
	if requested == 0 {
		return nil, nil
	}

	// Build a fresh slice; appending videos onto a truncated images slice
	// would write through into the caller's backing array.
	sources := make([]string, 0, requested)
	sources = append(sources, images...)
	sources = append(sources, videos...)

	var mediaIDs []string
	for _, src := range sources {
		data, mimeType, err := twitter.ResolveMediaSource(ctx, p.mediaHTTP, src)
		if err != nil {
			metrics.MediaUploadFailures.Inc()
			p.logger.Warn("skipping media item", "error", err)
			continue
		}
		id, err := client.UploadMedia(ctx, data, mimeType)
		if err != nil {
			metrics.MediaUploadFailures.Inc()
			p.logger.Warn("media upload failed", "error", err)
			continue
		}
		mediaIDs = append(mediaIDs, id)
	}

	if len(mediaIDs) == 0 {
		return nil, twitter.NewError(twitter.KindInvalidMedia,
			"none of the %d supplied media items could be uploaded", requested)
	}
	return mediaIDs, nil
}

// shareURLs resolves the caller's profile once and builds share URLs for the
// given tweet ids. A failed profile lookup falls back to the redirecting
// /i/status form.
func (p *Poster) shareURLs(ctx context.Context, client *twitter.Client, ids []string) []string {
	username := "i"
	if client != nil {
		prof, err := client.Me(ctx)
		if err != nil {
			p.logger.Warn("profile lookup failed, using fallback URLs", "error", err)
		} else if prof.Username != "" {
			username = prof.Username
		}
	}
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = twitter.ShareURL(username, id)
	}
	return urls
}

// recordHistory appends to the local post history, logging failures.
func (p *Poster) recordHistory(req *models.TweetRequest, caller *models.CallerContext, tweetID, url string) {
	if p.history == nil {
		return
	}
	rec := models.NewPostRecord(tweetID, url, caller.UserID, caller.ServerID, req.Text, req.ReplyToTweetID)
	if err := p.history.Append(rec); err != nil {
		p.logger.Warn("failed to record post history", "tweet_id", tweetID, "error", err)
	}
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
