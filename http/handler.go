package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/sitedock/sitedock"
	"github.com/sitedock/sitedock/auth"
	"github.com/sitedock/sitedock/upload"
)

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// BaseURL is the externally visible server URL used to build site URLs.
	BaseURL string
	// MaxUploadSize caps the upload request body in bytes; 0 means no limit.
	MaxUploadSize int64
	// UploadTmpDir receives streamed upload archives; empty means os.TempDir.
	UploadTmpDir string
	// AdminKey guards the admin report endpoint; empty disables it.
	AdminKey string
	CORS     CORSConfig
}

// Handler provides the HTTP surface: auth, site management, static serving
// and the admin report.
type Handler struct {
	config    HandlerConfig
	sites     *sitedock.SiteService
	auth      *auth.Service
	tokens    *auth.TokenService
	users     sitedock.UserRepo
	sitesRoot *os.Root
}

// NewHandler creates a new Handler. sitesRoot is an os.Root opened at the
// sites files base path; static content is served from it sandboxed.
func NewHandler(config *HandlerConfig, sites *sitedock.SiteService, authSvc *auth.Service, tokens *auth.TokenService, users sitedock.UserRepo, sitesRoot *os.Root) *Handler {
	return &Handler{
		config:    *config,
		sites:     sites,
		auth:      authSvc,
		tokens:    tokens,
		users:     users,
		sitesRoot: sitesRoot,
	}
}

// Router returns the configured http.Handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)

	r.Get("/api/sites", h.handleListSites)
	r.Get("/api/sites/{name}/versions", h.handleSiteVersions)
	r.Get("/api/admin/report", h.handleAdminReport)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.tokens))
		r.Get("/auth/me", h.handleMe)
		r.Get("/user/profile", h.handleMe)
		r.Put("/user/profile", h.handleUpdateProfile)
		r.Get("/user/stats", h.handleUserStats)
		r.Delete("/user/account", h.handleDeleteAccount)
		r.Post("/api/sites", h.handleUpload)
		r.Get("/api/sites/mine", h.handleMySites)
		r.Put("/api/sites/{id}", h.handleUpdateSite)
		r.Delete("/api/sites/{id}", h.handleDeleteSite)
	})

	// Both URL forms resolve here: /sites/{id}/... and /sites/{name}/...
	r.Handle("/sites/*", http.StripPrefix("/sites/", hideDotPaths(http.FileServerFS(h.sitesRoot.FS()))))

	return r
}

// hideDotPaths rejects any request whose path contains a dot-prefixed
// segment. Deploy staging directories live under the sites base path as
// .deploy-{id} and must never be reachable through the static handler.
func hideDotPaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, seg := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(seg, ".") {
				http.NotFound(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  sitedock.User `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, sitedock.ErrUnauthorized) {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
			return
		}
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, user)
}

// handleUpload receives a multipart site upload and runs the deployment
// pipeline. The archive is streamed to disk; it never lives in memory.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Expected multipart request")
		return
	}

	tmpDir := h.config.UploadTmpDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	res, err := upload.ReadForm(r.Context(), mr, tmpDir)
	if err != nil {
		HandleError(w, err)
		return
	}

	site, err := h.sites.Deploy(r.Context(), sitedock.DeployRequest{
		SiteID:      res.SiteID,
		SiteName:    res.SiteName,
		OwnerID:     userID,
		ArchivePath: res.ArchivePath,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, sitedock.SiteResponseFrom(site, h.config.BaseURL))
}

func (h *Handler) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.sites.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, h.siteResponses(sites))
}

func (h *Handler) handleMySites(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	sites, err := h.sites.ListByOwner(r.Context(), userID)
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, h.siteResponses(sites))
}

func (h *Handler) handleSiteVersions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !sitedock.IsValidSiteName(name) {
		WriteError(w, http.StatusBadRequest, "invalid_name", "Invalid site name")
		return
	}

	sites, err := h.sites.Versions(r.Context(), name)
	if err != nil {
		HandleError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, h.siteResponses(sites))
}

type updateSiteRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Domain      *string `json:"domain,omitempty"`
}

func (h *Handler) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	siteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid site id")
		return
	}

	var req updateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	site, err := h.sites.Update(r.Context(), siteID, userID, sitedock.UpdateSite{
		Name:        req.Name,
		Description: req.Description,
		Domain:      req.Domain,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, sitedock.SiteResponseFrom(site, h.config.BaseURL))
}

func (h *Handler) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	siteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid site id")
		return
	}

	if err := h.sites.Delete(r.Context(), siteID, userID); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateProfileRequest struct {
	Username string `json:"username"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
		return
	}

	user, err := h.auth.UpdateUsername(r.Context(), userID, req.Username)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, user)
}

type userStats struct {
	SiteCount  int   `json:"site_count"`
	TotalBytes int64 `json:"total_bytes"`
}

// handleUserStats reports how many sites the user owns and the disk space
// their identifier trees occupy.
func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	sites, err := h.sites.ListByOwner(r.Context(), userID)
	if err != nil {
		HandleError(w, err)
		return
	}

	stats := userStats{SiteCount: len(sites)}
	for _, site := range sites {
		size, err := h.sites.DiskUsage(site.ID)
		if err != nil {
			HandleError(w, err)
			return
		}
		stats.TotalBytes += size
	}

	_ = WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), userID); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type adminSite struct {
	sitedock.SiteResponse
	SizeBytes int64 `json:"size_bytes"`
}

type adminReport struct {
	Sites []adminSite     `json:"sites"`
	Users []sitedock.User `json:"users"`
}

// handleAdminReport returns every site with its disk usage, plus every user.
// Guarded by a shared key passed as ?key=; disabled entirely when no key is
// configured.
func (h *Handler) handleAdminReport(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if h.config.AdminKey == "" ||
		subtle.ConstantTimeCompare([]byte(key), []byte(h.config.AdminKey)) != 1 {
		WriteError(w, http.StatusForbidden, "unauthorized", "Forbidden")
		return
	}

	sites, err := h.sites.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	report := adminReport{Sites: make([]adminSite, 0, len(sites))}
	for _, site := range sites {
		size, err := h.sites.DiskUsage(site.ID)
		if err != nil {
			HandleError(w, err)
			return
		}
		report.Sites = append(report.Sites, adminSite{
			SiteResponse: sitedock.SiteResponseFrom(site, h.config.BaseURL),
			SizeBytes:    size,
		})
	}

	report.Users, err = h.users.ListAll(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) siteResponses(sites []sitedock.Site) []sitedock.SiteResponse {
	responses := make([]sitedock.SiteResponse, 0, len(sites))
	for _, site := range sites {
		responses = append(responses, sitedock.SiteResponseFrom(site, h.config.BaseURL))
	}
	return responses
}
