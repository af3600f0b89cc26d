package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hivereader/hivereader/broadcast"
	"github.com/hivereader/hivereader/community"
	"github.com/hivereader/hivereader/content"
	"github.com/hivereader/hivereader/feed"
	"github.com/hivereader/hivereader/hiveapi"
	"github.com/hivereader/hivereader/model"
	"github.com/hivereader/hivereader/server/middlewares"
	"github.com/hivereader/hivereader/store"
	"github.com/hivereader/hivereader/utils"
	Logger "github.com/hivereader/hivereader/utils/log"
)

const (
	// defaultFeedSession groups loaders of clients that do not send a feed
	// session id. They share cursors, which is correct for anonymous browsing.
	defaultFeedSession = "anonymous"

	maxPageSize = 50
)

// Handlers wires the four core components behind the HTTP surface. The
// handlers only translate requests and responses; every piece of feed,
// cache and broadcast behavior lives in the packages they call.
type Handlers struct {
	Hive        *hiveapi.Client
	Pipeline    *content.Pipeline
	Communities *community.Cache
	Gateway     *broadcast.Gateway
	Drafts      *store.DraftStore
	Sessions    *SessionStore
	Registry    *LoaderRegistry

	// ProxyHost is the image resizing proxy base url.
	ProxyHost string
	// Origin is the serving origin forwarded to rewritten video embeds.
	Origin string
}

// RegisterRoutes attaches all API routes to the router.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := router.Group("/api")
	api.POST("/login", h.login)
	api.GET("/feed/:sort", h.feedPage)
	api.POST("/feed/:sort/reset", h.feedReset)
	api.GET("/post/:author/:permlink", h.postDetail)
	api.GET("/communities", h.listCommunities)
	api.GET("/communities/search", h.searchCommunities)
	api.GET("/community/:name", h.communityDetail)
	api.GET("/subscriptions/:username", h.subscriptions)

	authed := api.Group("", middlewares.Auth(h.Sessions))
	authed.POST("/vote", h.vote)
	authed.POST("/subscribe", h.subscribe)
	authed.POST("/unsubscribe", h.unsubscribe)
	authed.POST("/publish", h.publish)
	if h.Drafts != nil {
		authed.GET("/drafts", h.listDrafts)
		authed.POST("/drafts", h.saveDraft)
		authed.DELETE("/drafts/:id", h.deleteDraft)
		authed.GET("/preferences/:key", h.getPreference)
		authed.PUT("/preferences/:key", h.setPreference)
	}
}

type loginRequest struct {
	Username string                `json:"username" binding:"required"`
	Method   broadcast.LoginMethod `json:"method" binding:"required"`
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	if req.Method != broadcast.MethodKeychain && req.Method != broadcast.MethodDirectKey {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "unknown login method"})
		return
	}

	exists, err := h.Hive.AccountExists(c.Request.Context(), req.Username)
	if err != nil {
		h.writeFetchError(c, err)
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"msg": "account does not exist"})
		return
	}

	token := h.Sessions.Create(req.Username, req.Method)
	c.JSON(http.StatusOK, gin.H{"token": token, "username": req.Username})
}

// feedSession returns the caller's feed session id, under which its loaders
// (and therefore cursors and seen-sets) are kept between requests.
func feedSession(c *gin.Context) string {
	if session := c.GetHeader("x-feed-session"); session != "" {
		return session
	}
	if session := c.Query("session"); session != "" {
		return session
	}
	return defaultFeedSession
}

func pageSize(c *gin.Context) int {
	size, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || size <= 0 {
		return feed.DefaultPageSize
	}
	return utils.Min(size, maxPageSize)
}

func (h *Handlers) feedLoader(c *gin.Context) *feed.Loader {
	sort := c.Param("sort")
	tag := c.Query("tag")
	account := c.Query("account")
	size := pageSize(c)

	key := sort + "|" + tag + "|" + account + "|" + strconv.Itoa(size)
	return h.Registry.Get(feedSession(c), key, func() *feed.Loader {
		var fetch feed.FetchPageFunc
		if account != "" {
			fetch = h.Hive.AccountPostsFetcher(account, sort)
		} else {
			fetch = h.Hive.RankedPostsFetcher(sort, tag)
		}
		return feed.NewLoader(fetch, model.Cursor{}, size)
	})
}

func (h *Handlers) feedPage(c *gin.Context) {
	loader := h.feedLoader(c)
	batch, err := loader.LoadNext(c.Request.Context())
	if err != nil {
		h.writeFetchError(c, err)
		return
	}

	h.enrich(c, batch.Items)
	c.JSON(http.StatusOK, batch)
}

func (h *Handlers) feedReset(c *gin.Context) {
	h.feedLoader(c).Reset(model.Cursor{})
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// enrich resolves thumbnails, excerpts and community titles for feed rows.
// One bad item never aborts the batch.
func (h *Handlers) enrich(c *gin.Context, items []*model.FeedItem) {
	for _, item := range items {
		if raw := content.ExtractImageFromContent(item.Body); raw != "" {
			item.ImageURL = content.OptimizeImageURL(h.ProxyHost, raw, content.DefaultImageOptions)
		}
		item.Excerpt = content.Excerpt(item.Body, content.DefaultExcerptLength)
		if item.Community != "" && item.CommunityTitle == "" {
			record := h.Communities.FindByName(c.Request.Context(), item.Community)
			item.CommunityTitle = record.Title
		}
	}
}

func (h *Handlers) postDetail(c *gin.Context) {
	author := c.Param("author")
	permlink := c.Param("permlink")

	items, err := h.Hive.Discussion(c.Request.Context(), author, permlink)
	if err != nil {
		h.writeFetchError(c, err)
		return
	}

	var root *model.FeedItem
	replies := []*model.FeedItem{}
	for _, item := range items {
		if item.Author == author && item.Permlink == permlink {
			root = item
		} else {
			replies = append(replies, item)
		}
	}
	if root == nil {
		c.JSON(http.StatusNotFound, gin.H{"msg": "post not found"})
		return
	}

	rendered, err := h.Pipeline.Render(root.Body, content.RenderOptions{
		Origin: h.Origin,
		Title:  root.Title,
	})
	if err != nil {
		Logger.Log.Error("fail to render post @", author, "/", permlink, ": ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "render failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":     root,
		"rendered": rendered,
		"replies":  replies,
	})
}

func (h *Handlers) listCommunities(c *gin.Context) {
	records, err := h.Communities.ListAll(c.Request.Context())
	if err != nil {
		h.writeFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": records})
}

func (h *Handlers) searchCommunities(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.Communities.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.writeFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": records})
}

func (h *Handlers) communityDetail(c *gin.Context) {
	record := h.Communities.FindByName(c.Request.Context(), c.Param("name"))
	c.JSON(http.StatusOK, record)
}

func (h *Handlers) subscriptions(c *gin.Context) {
	set, err := h.Communities.GetSubscriptions(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.writeFetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": set.Names()})
}

type voteRequest struct {
	Author   string `json:"author" binding:"required"`
	Permlink string `json:"permlink" binding:"required"`
	Weight   int    `json:"weight"`
}

func (h *Handlers) vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	err := h.Gateway.Vote(c.Request.Context(), broadcast.VoteInput{
		Voter:    c.GetHeader("sub"),
		Author:   req.Author,
		Permlink: req.Permlink,
		Weight:   req.Weight,
	})
	h.writeActionResult(c, err)
}

type subscriptionRequest struct {
	Community string `json:"community" binding:"required"`
}

func (h *Handlers) subscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	err := h.Gateway.Subscribe(c.Request.Context(), c.GetHeader("sub"), req.Community)
	h.writeActionResult(c, err)
}

func (h *Handlers) unsubscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	err := h.Gateway.Unsubscribe(c.Request.Context(), c.GetHeader("sub"), req.Community)
	h.writeActionResult(c, err)
}

func (h *Handlers) publish(c *gin.Context) {
	var req broadcast.PostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	req.Author = c.GetHeader("sub")
	err := h.Gateway.Publish(c.Request.Context(), req)
	h.writeActionResult(c, err)
}

func (h *Handlers) listDrafts(c *gin.Context) {
	drafts, err := h.Drafts.ListDrafts(c.GetHeader("sub"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

func (h *Handlers) saveDraft(c *gin.Context) {
	var draft store.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	draft.Username = c.GetHeader("sub")
	if err := h.Drafts.SaveDraft(&draft); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handlers) deleteDraft(c *gin.Context) {
	if err := h.Drafts.DeleteDraft(c.GetHeader("sub"), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handlers) getPreference(c *gin.Context) {
	value, err := h.Drafts.GetPreference(c.GetHeader("sub"), c.Param("key"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	if value == nil {
		c.JSON(http.StatusNotFound, gin.H{"msg": "preference not set"})
		return
	}
	c.Data(http.StatusOK, "application/json", value)
}

func (h *Handlers) setPreference(c *gin.Context) {
	value, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	if err := h.Drafts.SetPreference(c.GetHeader("sub"), c.Param("key"), value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// writeActionResult maps the gateway error taxonomy to responses the client
// can turn into typed notifications. Cancellation is not a hard error.
func (h *Handlers) writeActionResult(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if broadcast.IsCancelled(err) {
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
		return
	}

	var validation *broadcast.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "kind": "validation", "msg": validation.Reason})
		return
	}

	var auth *broadcast.AuthError
	if errors.As(err, &auth) {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "kind": "auth", "msg": auth.Reason})
		return
	}

	var network *broadcast.NetworkError
	if errors.As(err, &network) {
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "kind": "network", "msg": err.Error()})
		return
	}

	Logger.Log.Error("unclassified broadcast failure: ", err)
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "kind": "internal", "msg": err.Error()})
}

// writeFetchError reports a remote API failure as retryable so the client
// can show its retry affordance.
func (h *Handlers) writeFetchError(c *gin.Context, err error) {
	Logger.Log.Warn("remote fetch failed: ", err)
	c.JSON(http.StatusBadGateway, gin.H{"status": "error", "kind": "fetch", "retryable": true, "msg": err.Error()})
}
