// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes a ClusterMap of geo points over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/denstream/denstream"
	"github.com/jcodagnone/denstream/faults"
	"github.com/jcodagnone/denstream/ingest"
	"github.com/jcodagnone/denstream/refine"
	"github.com/jcodagnone/denstream/spatial"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

// Engine is the cluster map the server drives.
type Engine = denstream.ClusterMap[spatial.GeoPoint]

// Options configures a Server.
type Options struct {
	// CellResolution is the H3 resolution reported for centers.
	CellResolution int

	// RefineThreshold is the text similarity used by ?refine=N.
	RefineThreshold float64

	ShutdownTimeout time.Duration
}

// Server serves the HTTP API over an Engine.
type Server struct {
	engine  *Engine
	repo    ingest.Repository
	refiner *refine.Clusterer[spatial.GeoPoint]
	opts    Options

	mu      sync.Mutex
	baseCtx context.Context
}

// NewServer returns a server over engine. repo may be nil, in which case
// accepted points are not recorded.
func NewServer(engine *Engine, repo ingest.Repository, opts Options) (*Server, error) {
	if engine == nil {
		return nil, faults.InvalidArgument("server needs an engine")
	}

	if opts.CellResolution == 0 {
		opts.CellResolution = spatial.DefaultCellResolution
	}

	if opts.RefineThreshold == 0 {
		opts.RefineThreshold = refine.DefaultThreshold
	}

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	refiner, err := refine.New[spatial.GeoPoint](opts.RefineThreshold, 2)
	if err != nil {
		return nil, fmt.Errorf("refinement: %w", err)
	}

	return &Server{
		engine:  engine,
		repo:    repo,
		refiner: refiner,
		opts:    opts,
		baseCtx: context.Background(),
	}, nil
}

// Router builds the gin engine with every API route.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	api.POST("/maintenance/start", s.startMaintenance)
	api.POST("/maintenance/terminate", s.terminateMaintenance)
	api.POST("/points", s.addPoints)
	api.PUT("/points/:id", s.updatePoint)
	api.DELETE("/points/:id", s.removePoint)
	api.DELETE("/points", s.clearPoints)
	api.GET("/clusters", s.getClusters)
	api.GET("/microclusters", s.getMicroClusters)
	api.GET("/statistics", s.getStatistics)

	return r
}

// Listen opens a TCP listener accepting at most maxConns simultaneous
// connections; maxConns <= 0 means no limit.
func Listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}

	return ln, nil
}

// Serve answers requests on ln until ctx is done, then shuts down
// gracefully. Maintenance started through the API is bound to ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Listening on %s", ln.Addr())

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func respondError(ctx *gin.Context, err error) {
	ctx.JSON(faults.HTTPStatus(err), gin.H{"error": err.Error(), "kind": faults.KindOf(err).String()})
}

func (s *Server) startMaintenance(ctx *gin.Context) {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	if _, err := s.engine.StartMaintenance(base); err != nil {
		respondError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, s.engine.Statistics())
}

func (s *Server) terminateMaintenance(ctx *gin.Context) {
	s.engine.Terminate()
	ctx.JSON(http.StatusOK, s.engine.Statistics())
}

func (s *Server) addPoints(ctx *gin.Context) {
	if ctx.Request.Body == nil {
		respondError(ctx, faults.InvalidArgument("no points in request body"))

		return
	}

	records, err := ingest.DecodeRecords(ctx.Request.Body)
	if err != nil {
		respondError(ctx, faults.InvalidArgument("%v", err))

		return
	}

	if len(records) == 0 {
		respondError(ctx, faults.InvalidArgument("no points in request body"))

		return
	}

	points := make([]spatial.GeoPoint, 0, len(records))

	for _, r := range records {
		p, err := r.GeoPoint()
		if err != nil {
			respondError(ctx, err)

			return
		}

		if p.ID() == "" {
			respondError(ctx, faults.InvalidArgument("point identity cannot be empty"))

			return
		}

		points = append(points, p)
	}

	if err := s.engine.AddMany(points); err != nil {
		respondError(ctx, err)

		return
	}

	s.record(points)

	ctx.JSON(http.StatusAccepted, gin.H{"accepted": len(points)})
}

// pointUpdate is the body of PUT /points/:id. Coordinates are pointers so
// a missing one is told apart from zero.
type pointUpdate struct {
	Lat     *float64  `json:"lat"`
	Lng     *float64  `json:"lng"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

func (s *Server) updatePoint(ctx *gin.Context) {
	var body pointUpdate
	if err := ctx.ShouldBindJSON(&body); err != nil {
		respondError(ctx, faults.InvalidArgument("%v", err))

		return
	}

	if body.Lat == nil || body.Lng == nil {
		respondError(ctx, faults.InvalidArgument("point %q needs both lat and lng", ctx.Param("id")))

		return
	}

	rec := ingest.Record{
		ID:      ctx.Param("id"),
		Lat:     *body.Lat,
		Lng:     *body.Lng,
		Content: body.Content,
		Time:    body.Time,
	}

	p, err := rec.GeoPoint()
	if err != nil {
		respondError(ctx, err)

		return
	}

	if err := s.engine.Update(p); err != nil {
		respondError(ctx, err)

		return
	}

	s.record([]spatial.GeoPoint{p})

	ctx.JSON(http.StatusAccepted, gin.H{"accepted": 1})
}

func (s *Server) removePoint(ctx *gin.Context) {
	if err := s.engine.Remove(ctx.Param("id")); err != nil {
		respondError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) clearPoints(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.engine.Clear())
}

func (s *Server) getStatistics(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.engine.Statistics())
}

// record stores accepted points; failures only cost the audit trail.
func (s *Server) record(points []spatial.GeoPoint) {
	if s.repo == nil {
		return
	}

	if err := s.repo.SavePoints(points); err != nil {
		log.Printf("Failed to record %d points: %v", len(points), err)
	}
}

func (s *Server) getClusters(ctx *gin.Context) {
	cluster := s.engine.Cluster
	if ctx.Query("coarse") == "true" {
		cluster = s.engine.ClusterCoarse
	}

	groups, err := cluster()
	if err != nil {
		respondError(ctx, err)

		return
	}

	if raw := ctx.Query("refine"); raw != "" {
		minSize, err := strconv.Atoi(raw)
		if err != nil || minSize < 0 {
			respondError(ctx, faults.InvalidArgument("refine must be a non-negative integer, got %q", raw))

			return
		}

		if groups, err = refine.Apply(groups, minSize, s.refiner); err != nil {
			respondError(ctx, err)

			return
		}
	}

	views := make([]ClusterView, 0, len(groups))

	for i, g := range groups {
		view, err := s.clusterView(i, g)
		if err != nil {
			respondError(ctx, err)

			return
		}

		views = append(views, view)
	}

	ctx.JSON(http.StatusOK, gin.H{"clusters": views, "total": len(views)})
}

func (s *Server) getMicroClusters(ctx *gin.Context) {
	snapshots, err := s.engine.MicroClusters()
	if err != nil {
		respondError(ctx, err)

		return
	}

	views := make([]MicroClusterView, 0, len(snapshots))
	for _, snap := range snapshots {
		views = append(views, MicroClusterView{
			Center: snap.Center.Point,
			Cell:   spatial.CellString(snap.Center.Point, s.opts.CellResolution),
			Radius: snap.Radius,
			Size:   len(snap.Points),
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"micro_clusters": views, "total": len(views)})
}
