package serve

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/config"
	"github.com/manjudata/predict-mlops/pkg/errs"
	"github.com/manjudata/predict-mlops/pkg/pipeline"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Server is the web form in front of a Predictor.
type Server struct {
	predictor *Predictor
	engine    *gin.Engine
	addr      string
}

type formField struct {
	Name  string
	Value string
}

type page struct {
	Fields     []formField
	Prediction string
	Error      string
	RunID      string
}

// NewServer builds the router. Debug selects gin's debug mode, which is not
// meant for production.
func NewServer(pred *Predictor, cfg config.ServingConfig) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/index.html")))

	s := &Server{predictor: pred, engine: r, addr: cfg.Addr()}
	r.GET("/", s.index)
	r.POST("/", s.predict)
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(pred.Metrics().Handler()))
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.addr).Info("serving prediction form")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func emptyPage(a *pipeline.Pipeline) page {
	names := a.FeatureNames()
	p := page{Fields: make([]formField, len(names)), RunID: a.Meta.RunID}
	for i, n := range names {
		p.Fields[i].Name = n
	}
	return p
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", emptyPage(s.predictor.Artifact()))
}

func (s *Server) predict(c *gin.Context) {
	// one artifact per request, even if a reload lands mid-request
	a := s.predictor.Artifact()
	p := emptyPage(a)
	values := make(map[string]string, len(p.Fields))
	for i := range p.Fields {
		v := c.PostForm(p.Fields[i].Name)
		p.Fields[i].Value = v
		values[p.Fields[i].Name] = v
	}

	start := time.Now()
	pred, err := s.predictor.PredictWith(a, values)
	s.predictor.metrics.Latency.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := errs.KindOf(err)
		s.predictor.metrics.Errors.WithLabelValues(kind.String()).Inc()
		logrus.WithError(err).WithField("kind", kind).Warn("prediction failed")
		p.Error = err.Error()
		if !kind.UserFixable() {
			p.Error = "prediction failed (" + kind.String() + ")"
		}
	} else {
		s.predictor.metrics.Predictions.WithLabelValues(pred.Label).Inc()
		p.Prediction = pred.Label
	}
	c.HTML(http.StatusOK, "index.html", p)
}

func (s *Server) health(c *gin.Context) {
	meta := s.predictor.Artifact().Meta
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"run_id":     meta.RunID,
		"trained_at": meta.TrainedAt,
		"features":   len(s.predictor.FeatureNames()),
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Info("request")
	}
}
