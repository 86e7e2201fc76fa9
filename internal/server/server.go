// Package server is a stand-in for the drug-code prediction service. It
// serves the same /drug-predict/ API, scored from a small built-in lexicon,
// and can inject latency so clients see responses arrive out of order.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/billie-coop/typeahead/internal/api"
	"github.com/billie-coop/typeahead/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Sections are the drug sections the service accepts.
var Sections = []string{"IN01", "LS01", "PYROT", "STYOT", "SVYOT", "TRYOT", "SD02", "SD15", "TX21", "TX36"}

const (
	defaultPredictionCount = 10
	// confidentP is the probability a top prediction needs to count as
	// confident: below it a warning is attached, above it the top code is
	// reported as the auxiliary ID.
	confidentP = 0.4

	warningUncertain = "Max prediction less than 0.4, model is uncertain about this course prediction"
	errMissingFields = "Data missing drug_section or drug_text variables"
)

var responseDescription = map[string]any{
	"description": "Predicted SC drug codes for a drug section and free-text drug description",
	"submitted_data": map[string]any{
		"structure": map[string]string{
			"drug_section":     "Drug section code",
			"drug_text":        "Text description of drug",
			"prediction_count": "Optional. The number of predictions to return (default=10)",
		},
	},
	"info": map[string]any{
		"structure": map[string]string{
			"warning":      "A warning if the maximum prediction is under 0.4, demonstrating model uncertainty",
			"time_elapsed": "time it took to calculate prediction and build response",
		},
	},
	"predictions": map[string]any{
		"description": "Array of predicted codes in descending order of probability",
		"structure": map[string]string{
			"sc_code":         "predicted SC drug code",
			"code_id":         "ID of code for lookup",
			"code_definition": "Definition of SC Code from documentation",
			"p":               "predicted probability of code given drug section and drug text",
			"p_rank":          "Rank of prediction (1 is most likely)",
		},
	},
}

// Options configures a Server.
type Options struct {
	// RatePerSecond limits prediction requests; zero disables the limit.
	RatePerSecond float64
	Burst         int
	// Each prediction response is delayed by a random duration in
	// [MinLatency, MaxLatency].
	MinLatency time.Duration
	MaxLatency time.Duration

	Logger   *slog.Logger
	Registry *prometheus.Registry
	Lexicon  *Lexicon
}

// Server is the stand-in prediction service.
type Server struct {
	engine   *gin.Engine
	lexicon  *Lexicon
	limiter  *rate.Limiter
	metrics  *metrics.ServiceMetrics
	logger   *slog.Logger
	minDelay time.Duration
	maxDelay time.Duration
	sections map[string]bool
}

// New builds the service and its routes.
func New(opts Options) (*Server, error) {
	if opts.MaxLatency < opts.MinLatency {
		return nil, fmt.Errorf("max latency %s is below min latency %s", opts.MaxLatency, opts.MinLatency)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Lexicon == nil {
		lex, err := LoadLexicon()
		if err != nil {
			return nil, err
		}
		opts.Lexicon = lex
	}

	s := &Server{
		lexicon:  opts.Lexicon,
		metrics:  metrics.NewServiceMetrics(opts.Registry),
		logger:   opts.Logger,
		minDelay: opts.MinLatency,
		maxDelay: opts.MaxLatency,
		sections: make(map[string]bool, len(Sections)),
	}
	for _, sec := range Sections {
		s.sections[sec] = true
	}
	if opts.RatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(opts.Burst, 1))
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.GET("/healthz", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	router.POST("/drug-predict/", s.rateLimit(), s.handlePredict)
	s.engine = router

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("prediction service listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("prediction service failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("prediction service shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.metrics.RateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.Response{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if id := c.GetHeader(api.RequestIDHeader); id != "" {
			c.Header(api.RequestIDHeader, id)
		}
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetHeader(api.RequestIDHeader),
			"duration", time.Since(start))
	}
}

// predictRequest is a parsed /drug-predict/ body.
type predictRequest struct {
	kind    string
	section string
	text    string
	count   int
}

func (s *Server) handlePredict(c *gin.Context) {
	start := time.Now()

	req, status, msg := parsePredictRequest(c)
	if msg == "" && !s.sections[req.section] {
		status, msg = http.StatusBadRequest, "Drug section must be one of the following: "+strings.Join(Sections, ", ")
	}
	if msg != "" {
		s.metrics.ObserveRequest(strconv.Itoa(status), req.kind, time.Since(start).Seconds())
		c.JSON(status, api.Response{Error: msg, RequestType: req.kind})
		return
	}

	if !s.delay(c.Request.Context()) {
		// The client went away.
		c.Abort()
		return
	}

	ranked := s.lexicon.Rank(req.text, req.count)
	resp := api.Response{
		Description: responseDescription,
		SubmittedData: map[string]any{
			"drug_section":         req.section,
			"drug_text":            req.text,
			api.PredictionCountKey: req.count,
		},
		Predictions: make([]api.WirePrediction, len(ranked)),
	}
	for i, r := range ranked {
		resp.Predictions[i] = api.WirePrediction{
			Code:       r.Entry.Code,
			CodeID:     r.Entry.ID,
			Definition: r.Entry.Definition,
			P:          r.P,
			Rank:       i + 1,
		}
	}

	info := &api.Info{}
	if len(ranked) > 0 {
		top := ranked[0].P
		s.metrics.ObserveTop(top)
		if top <= confidentP {
			w := warningUncertain
			info.Warning = &w
		} else {
			resp.AuxiliaryID = ranked[0].Entry.Code
		}
	}
	elapsed := time.Since(start)
	info.TimeElapsed = fmt.Sprintf("%.2f s", elapsed.Seconds())
	resp.Info = info

	s.metrics.ObserveRequest(strconv.Itoa(http.StatusOK), req.kind, elapsed.Seconds())
	c.JSON(http.StatusOK, resp)
}

// parsePredictRequest reads a JSON or form body. A non-empty message means
// the request is rejected with the returned status.
func parsePredictRequest(c *gin.Context) (predictRequest, int, string) {
	req := predictRequest{kind: "form", count: defaultPredictionCount}
	values := make(map[string]any)

	if c.ContentType() == gin.MIMEJSON {
		req.kind = "json"
		if err := c.ShouldBindJSON(&values); err != nil {
			return req, http.StatusBadRequest, "Request body is not valid JSON"
		}
	} else {
		if err := c.Request.ParseForm(); err != nil {
			return req, http.StatusBadRequest, "Request body is not a valid form"
		}
		for k := range c.Request.PostForm {
			values[k] = c.Request.PostForm.Get(k)
		}
	}

	section, hasSection := values["drug_section"]
	text, hasText := values["drug_text"]
	if !hasSection || !hasText {
		return req, http.StatusBadRequest, errMissingFields
	}
	req.section = fmt.Sprint(section)
	req.text = fmt.Sprint(text)

	if raw, ok := values[api.PredictionCountKey]; ok {
		n, err := parseCount(raw)
		if err != nil || n <= 0 {
			return req, http.StatusBadRequest, "prediction_count must be a positive integer"
		}
		req.count = n
	}
	return req, http.StatusOK, ""
}

func parseCount(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// delay waits for the injected latency. It reports false if ctx ended first.
func (s *Server) delay(ctx context.Context) bool {
	d := s.minDelay
	if spread := s.maxDelay - s.minDelay; spread > 0 {
		d += rand.N(spread)
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
