package sitedock

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Site represents one deployed version of a named site. Re-uploading under an
// existing name creates a new Site with a fresh id; old versions are retained.
type Site struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Domain      *string   `json:"domain,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewSite builds a Site record with CreatedAt set to now. CreatedAt is the
// version-ordering key for latest-by-name resolution.
func NewSite(id, ownerID uuid.UUID, name, description string) Site {
	return Site{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// User is an account that owns sites.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SiteResponse is the API shape of a Site, carrying both URL forms.
type SiteResponse struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Domain      *string   `json:"domain,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url"`
	URLByID     string    `json:"url_by_id"`
}

// SiteResponseFrom renders a Site against the configured base URL.
func SiteResponseFrom(site Site, baseURL string) SiteResponse {
	return SiteResponse{
		ID:          site.ID,
		OwnerID:     site.OwnerID,
		Name:        site.Name,
		Description: site.Description,
		Domain:      site.Domain,
		CreatedAt:   site.CreatedAt,
		URL:         fmt.Sprintf("%s/sites/%s/", baseURL, site.Name),
		URLByID:     fmt.Sprintf("%s/sites/%s/", baseURL, site.ID),
	}
}

// Rewrite describes a literal substring substitution applied to UTF-8 text
// entries during the replace extraction pass.
type Rewrite struct {
	From string
	To   string
}

// DeployRequest is the validated input to SiteService.Deploy. ArchivePath
// points at the uploaded archive on local disk; the filename suffix selects
// the archive format.
type DeployRequest struct {
	SiteID      uuid.UUID
	SiteName    string
	OwnerID     uuid.UUID
	ArchivePath string
}
