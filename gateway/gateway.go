// Package gateway exposes a small HTTP surface over the admin client
// so purges can be triggered by webhooks and deploy pipelines that
// cannot speak the management CLI themselves.
package gateway

import (
	"io"
	"net/http"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/neighborhoods/VarnishAdmin/client"
)

// Admin is the slice of the admin client the gateway drives.
type Admin interface {
	Purge(expression string) ([]byte, error)
	PurgeURL(url string) ([]byte, error)
	Ping() ([]byte, error)
	ChildState() client.State
}

type Options struct {
	Admin Admin

	// Debug leaves gin in its chatty default mode
	Debug bool

	Log *zap.Logger
}

// New builds the gateway router.
//
// Routes:
//
//	GET  /ping       - check the console still answers
//	GET  /status     - report the varnishd child state
//	POST /purge      - {"expression": "<ban expression>"}
//	POST /purge/url  - {"url": "<url>"}
func New(options Options) *gin.Engine {
	gin.DisableConsoleColor()
	if !options.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(ginzap.Ginzap(options.Log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(options.Log, true))

	g := &gateway{admin: options.Admin, log: options.Log}

	r.GET("/ping", g.ping)
	r.GET("/status", g.status)
	r.POST("/purge", g.purge)
	r.POST("/purge/url", g.purgeURL)

	return r
}

type gateway struct {
	// The console answers one command at a time and the client is not
	// safe for concurrent use, so handler access is serialized.
	mu sync.Mutex

	admin Admin
	log   *zap.Logger
}

func (g *gateway) ping(c *gin.Context) {
	g.mu.Lock()
	_, err := g.admin.Ping()
	g.mu.Unlock()

	if err != nil {
		c.String(http.StatusBadGateway, "varnishd unreachable")
		return
	}

	c.String(http.StatusOK, "pong")
}

func (g *gateway) status(c *gin.Context) {
	g.mu.Lock()
	state := g.admin.ChildState()
	g.mu.Unlock()

	body, _ := sjson.Set("", "state", state.String())
	c.Data(http.StatusOK, "application/json", []byte(body))
}

func (g *gateway) purge(c *gin.Context) {
	expression := bodyField(c, "expression")
	if expression == "" {
		c.String(http.StatusBadRequest, "missing expression")
		return
	}

	g.mu.Lock()
	out, err := g.admin.Purge(expression)
	g.mu.Unlock()

	g.reply(c, out, err)
}

func (g *gateway) purgeURL(c *gin.Context) {
	url := bodyField(c, "url")
	if url == "" {
		c.String(http.StatusBadRequest, "missing url")
		return
	}

	g.mu.Lock()
	out, err := g.admin.PurgeURL(url)
	g.mu.Unlock()

	g.reply(c, out, err)
}

// bodyField pulls one string field out of a JSON request body.
func bodyField(c *gin.Context, field string) string {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}

	return gjson.GetBytes(raw, field).String()
}

func (g *gateway) reply(c *gin.Context, out []byte, err error) {
	if err != nil {
		g.log.Warn("Admin command failed", zap.Error(err))

		body, _ := sjson.Set("", "error", err.Error())
		c.Data(http.StatusBadGateway, "application/json", []byte(body))
		return
	}

	body, _ := sjson.Set("", "result", string(out))
	c.Data(http.StatusOK, "application/json", []byte(body))
}
