// Package session derives the content mode of an inbound request: whether a
// validated visual-editor session is active, which content version to serve
// and whether the cache must be bypassed.
package session

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/content-cache/pkg/criteria"
	"github.com/Sternrassler/content-cache/pkg/logging"
)

// Request parameters set by the visual editor.
const (
	ParamEditor   = "_storyblok"
	ParamVersion  = "_storyblok_version"
	ParamLanguage = "_storyblok_lang"

	ParamTokenSpaceID   = "_storyblok_tk[space_id]"
	ParamTokenTimestamp = "_storyblok_tk[timestamp]"
	ParamTokenToken     = "_storyblok_tk[token]"
)

// DefaultTolerance is how far an editor token timestamp may drift from now.
const DefaultTolerance = 300 * time.Second

// Mode is the resolved content mode of one request.
type Mode struct {
	// Preview is true only for a validated editor session.
	Preview bool

	// DevMode mirrors the configured developer flag.
	DevMode bool

	// RequestedVersion is the explicit version parameter, if valid.
	RequestedVersion criteria.Version

	// Language is the requested language, empty when none was given.
	Language string
}

// Version returns draft for editor sessions and dev mode, otherwise the
// requested version, otherwise published.
func (m Mode) Version() criteria.Version {
	if m.DevMode || m.Preview {
		return criteria.VersionDraft
	}
	if m.RequestedVersion.Valid() {
		return m.RequestedVersion
	}
	return criteria.VersionPublished
}

// BypassCache reports whether loads must miss and saves must be skipped.
func (m Mode) BypassCache() bool {
	return m.Preview || m.DevMode
}

// Config holds session validation settings.
type Config struct {
	// PreviewToken is the space preview token used to sign editor links.
	PreviewToken string

	// DevMode forces draft content and disables caching.
	DevMode bool

	// Tolerance bounds the editor token age (default 300s).
	Tolerance time.Duration
}

// Manager resolves request modes. It is safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
	logger zerolog.Logger
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Manager{
		config: cfg,
		now:    time.Now,
		logger: logging.NewLogger("session"),
	}
}

// FromRequest resolves the mode of r.
func (m *Manager) FromRequest(r *http.Request) Mode {
	q := r.URL.Query()

	mode := Mode{
		DevMode:  m.config.DevMode,
		Language: q.Get(ParamLanguage),
	}
	if v := criteria.Version(q.Get(ParamVersion)); v.Valid() {
		mode.RequestedVersion = v
	}

	if q.Has(ParamEditor) {
		mode.Preview = m.ValidEditorToken(q.Get(ParamTokenSpaceID), q.Get(ParamTokenTimestamp), q.Get(ParamTokenToken))
		if !mode.Preview {
			m.logger.Debug().Msg("Editor parameter present without a valid token")
		}
	}
	return mode
}

// ValidEditorToken reports whether token equals sha1(spaceID + previewToken + timestamp)
// and timestamp lies within the tolerance of now.
func (m *Manager) ValidEditorToken(spaceID, timestamp, token string) bool {
	if m.config.PreviewToken == "" || spaceID == "" || timestamp == "" || token == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	drift := m.now().Sub(time.Unix(ts, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > m.config.Tolerance {
		return false
	}

	expected := EditorToken(spaceID, m.config.PreviewToken, ts)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

// EditorToken computes the token the visual editor appends to preview links.
func EditorToken(spaceID, previewToken string, timestamp int64) string {
	sum := sha1.Sum([]byte(spaceID + previewToken + strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(sum[:])
}
