package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/pvpobserver/pkg/engine"
	"github.com/ssargent/pvpobserver/pkg/loader"
	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/stats"
	"github.com/ssargent/pvpobserver/pkg/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000

	// uploadField is the multipart form field carrying the store file.
	uploadField = "file"
)

var errNoArchive = errors.New("match archive is disabled")

// Server holds the API server state
type Server struct {
	backends Backends
	config   ServerConfig
	metrics  *Metrics
	logger   *zap.Logger
}

// NewServer creates a new API server
func NewServer(backends Backends, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = loader.DefaultMaxBytes
	}
	if backends.Loader == nil {
		backends.Loader = loader.New(loader.Config{MaxBytes: config.MaxUploadBytes, Logger: logger})
	}
	if backends.Recoverer == nil {
		backends.Recoverer = engine.New(engine.Config{Logger: logger, Loader: backends.Loader})
	}
	return &Server{
		backends: backends,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API and its backends
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:         "healthy",
		ArchiveEnabled: s.backends.Archive != nil,
		CacheEnabled:   s.backends.Cache != nil,
	}

	if s.backends.Archive != nil {
		n, err := s.backends.Archive.Count()
		if err != nil {
			resp.Status = "degraded"
		} else {
			resp.ArchivedMatches = n
			s.metrics.UpdateArchiveStats(n)
		}
	}
	if s.backends.Cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.backends.Cache.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.CacheError = err.Error()
		}
	}

	s.metrics.RecordHealthCheck(resp.Status == "healthy")
	sendSuccess(w, resp)
}

// handleRecover godoc
//
//	@Summary		Recover matches from a store file
//	@Description	Upload a raw store image or a JSON export, optionally compressed, as the request body or as the "file" field of a multipart form. Use ?archive=false to skip archiving and ?stats=true to include ranked players.
//	@Tags			recovery
//	@Accept			octet-stream,json,mpfd
//	@Produce		json
//	@Param			archive	query		bool	false	"Archive recovered matches (default true)"
//	@Param			stats	query		bool	false	"Include player statistics"
//	@Success		200		{object}	RecoverResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/recover [post]
//	@Security		ApiKeyAuth
func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	in, res, ok := s.recoverUpload(w, r)
	if !ok {
		return
	}
	matches := res.Matches()

	resp := RecoverResponse{
		Source:      in.Source,
		Compression: string(in.Compression),
		Kind:        in.Kind.String(),
		Header:      res.Header,
		Stats:       res.Stats,
		Collections: res.Collections,
	}

	if s.backends.Archive != nil && queryBool(r, "archive", true) {
		put, err := s.backends.Archive.Put(matches)
		s.metrics.RecordArchiveOperation("put", err == nil)
		if err != nil {
			s.logger.Error("failed to archive matches", zap.Error(err))
			sendError(w, fmt.Sprintf("Failed to archive matches: %v", err), http.StatusInternalServerError)
			return
		}
		resp.Archive = &put
		s.refreshArchiveGauge()
	}

	if queryBool(r, "stats", false) {
		resp.Players = stats.Aggregate(matches)
	}

	s.publish(r.Context(), in.Source, res)
	sendSuccess(w, resp)
}

// handleUploadStats godoc
//
//	@Summary		Rank the players of an uploaded store
//	@Description	Recover matches from the uploaded file and return tiered player statistics without archiving anything.
//	@Tags			stats
//	@Accept			octet-stream,json,mpfd
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Failure		400	{object}	APIResponse
//	@Failure		413	{object}	APIResponse
//	@Router			/stats [post]
//	@Security		ApiKeyAuth
func (s *Server) handleUploadStats(w http.ResponseWriter, r *http.Request) {
	_, res, ok := s.recoverUpload(w, r)
	if !ok {
		return
	}
	sendSuccess(w, buildStats(res.Matches()))
}

// handleArchiveStats godoc
//
//	@Summary		Rank archived players
//	@Description	Compute tiered player statistics over the archive and refresh the cached leaderboard.
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Failure		503	{object}	APIResponse
//	@Router			/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleArchiveStats(w http.ResponseWriter, r *http.Request) {
	matches, ok := s.archivedMatches(w)
	if !ok {
		return
	}

	resp := buildStats(matches)
	if s.backends.Cache != nil {
		if err := s.backends.Cache.WriteLeaderboard(r.Context(), resp.Players); err != nil {
			s.logger.Warn("failed to cache leaderboard", zap.Error(err))
		}
		if err := s.backends.Cache.WriteSummary(r.Context(), resp.Summary); err != nil {
			s.logger.Warn("failed to cache summary", zap.Error(err))
		}
	}
	sendSuccess(w, resp)
}

// handlePlayers godoc
//
//	@Summary		Leaderboard
//	@Description	List players by tier score, from the cache when it holds a leaderboard and from the archive otherwise.
//	@Tags			stats
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of players"
//	@Success		200		{array}		stats.PlayerStats
//	@Failure		503		{object}	APIResponse
//	@Router			/players [get]
//	@Security		ApiKeyAuth
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.backends.Cache != nil {
		players, err := s.backends.Cache.ReadLeaderboard(r.Context(), int64(limit))
		if err != nil {
			s.logger.Warn("failed to read cached leaderboard", zap.Error(err))
		} else if len(players) > 0 {
			sendSuccess(w, players)
			return
		}
	}

	matches, ok := s.archivedMatches(w)
	if !ok {
		return
	}
	players := stats.Aggregate(matches)
	if len(players) > limit {
		players = players[:limit]
	}
	sendSuccess(w, players)
}

// handleListMatches godoc
//
//	@Summary		List archived matches
//	@Description	List archived matches, newest first
//	@Tags			matches
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of matches"
//	@Success		200		{array}		storage.StoredMatch
//	@Failure		503		{object}	APIResponse
//	@Router			/matches [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	if s.backends.Archive == nil {
		sendError(w, errNoArchive.Error(), http.StatusServiceUnavailable)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := s.backends.Archive.List(limit)
	s.metrics.RecordArchiveOperation("list", err == nil)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list matches: %v", err), http.StatusInternalServerError)
		return
	}
	if stored == nil {
		stored = []storage.StoredMatch{}
	}
	sendSuccess(w, stored)
}

// handleGetMatch godoc
//
//	@Summary		Get an archived match
//	@Description	Get one archived match with each player's overall figures
//	@Tags			matches
//	@Produce		json
//	@Param			id	path		string	true	"Match id"
//	@Success		200	{object}	MatchResponse
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/matches/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.matchID(w, r)
	if !ok {
		return
	}

	m, err := s.backends.Archive.Get(id)
	s.metrics.RecordArchiveOperation("get", err == nil)
	if err != nil {
		sendArchiveError(w, err)
		return
	}

	all, ok := s.archivedMatches(w)
	if !ok {
		return
	}
	sendSuccess(w, MatchResponse{
		ID:      id.String(),
		Match:   m,
		Players: stats.MatchView(m, stats.Aggregate(all)),
	})
}

// handleDeleteMatch godoc
//
//	@Summary		Delete an archived match
//	@Tags			matches
//	@Produce		json
//	@Param			id	path		string	true	"Match id"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	APIResponse
//	@Router			/matches/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.matchID(w, r)
	if !ok {
		return
	}

	err := s.backends.Archive.Delete(id)
	s.metrics.RecordArchiveOperation("delete", err == nil)
	if err != nil {
		sendArchiveError(w, err)
		return
	}
	s.refreshArchiveGauge()
	sendSuccess(w, map[string]string{"message": "Match deleted successfully"})
}

// recoverUpload reads the request's upload and runs the engine over it. It
// writes the error response itself and reports false on failure.
func (s *Server) recoverUpload(w http.ResponseWriter, r *http.Request) (*loader.Input, *engine.Result, bool) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	body, name, err := uploadBody(r)
	if err != nil {
		s.metrics.RecordRecovery("unknown", 0, nil, time.Since(start))
		sendError(w, err.Error(), uploadStatus(err))
		return nil, nil, false
	}
	defer body.Close()

	in, err := s.backends.Loader.Read(body, name)
	if err != nil {
		s.metrics.RecordRecovery("unknown", 0, nil, time.Since(start))
		sendError(w, err.Error(), uploadStatus(err))
		return nil, nil, false
	}

	res, err := s.backends.Recoverer.Process(in)
	s.metrics.RecordRecovery(in.Kind.String(), len(in.Data), res, time.Since(start))
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to process %s: %v", in.Kind, err), http.StatusUnprocessableEntity)
		return nil, nil, false
	}

	s.logger.Info("upload recovered",
		zap.String("source", in.Source),
		zap.String("kind", in.Kind.String()),
		zap.Int("matches", res.Stats.Matches),
		zap.Int("players", res.Stats.Players),
		zap.Duration("duration", time.Since(start)))
	return in, res, true
}

// publish pushes a recovery to the cache. Cache failures never fail the
// request.
func (s *Server) publish(ctx context.Context, source string, res *engine.Result) {
	if s.backends.Cache == nil {
		return
	}
	if err := s.backends.Cache.WriteMatches(ctx, res.Matches()); err != nil {
		s.logger.Warn("failed to cache matches", zap.Error(err))
	}
	if err := s.backends.Cache.PublishRecovery(ctx, source, res.Stats.Matches, res.Stats.Players); err != nil {
		s.logger.Warn("failed to publish recovery", zap.Error(err))
	}
}

func (s *Server) archivedMatches(w http.ResponseWriter) ([]match.MatchRecord, bool) {
	if s.backends.Archive == nil {
		sendError(w, errNoArchive.Error(), http.StatusServiceUnavailable)
		return nil, false
	}
	matches, err := s.backends.Archive.Matches()
	s.metrics.RecordArchiveOperation("scan", err == nil)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to read archive: %v", err), http.StatusInternalServerError)
		return nil, false
	}
	return matches, true
}

func (s *Server) matchID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	if s.backends.Archive == nil {
		sendError(w, errNoArchive.Error(), http.StatusServiceUnavailable)
		return ksuid.Nil, false
	}
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid match id", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

func (s *Server) refreshArchiveGauge() {
	if n, err := s.backends.Archive.Count(); err == nil {
		s.metrics.UpdateArchiveStats(n)
	}
}

func buildStats(matches []match.MatchRecord) StatsResponse {
	players := stats.Aggregate(matches)
	return StatsResponse{
		Players: players,
		Summary: stats.Summarize(players, matches),
	}
}

// uploadBody returns the uploaded file: the "file" part of a multipart form,
// or the whole body otherwise.
func uploadBody(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		name := r.Header.Get("X-Filename")
		if name == "" {
			name = "upload"
		}
		return r.Body, name, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("invalid multipart body: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, "", fmt.Errorf("multipart body has no %q field", uploadField)
		}
		if err != nil {
			return nil, "", fmt.Errorf("invalid multipart body: %w", err)
		}
		if part.FormName() == uploadField {
			name := part.FileName()
			if name == "" {
				name = uploadField
			}
			return part, name, nil
		}
		_ = part.Close()
	}
}

func uploadStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || errors.Is(err, loader.ErrTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func sendArchiveError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, "Match not found", http.StatusNotFound)
		return
	}
	sendError(w, fmt.Sprintf("Archive error: %v", err), http.StatusInternalServerError)
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func queryBool(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
