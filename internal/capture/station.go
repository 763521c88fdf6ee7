package capture

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"staffattend/internal/matcher"
)

// DefaultGalleryRefresh is how often a station polls the gallery version.
const DefaultGalleryRefresh = 30 * time.Second

// GallerySource serves the enrolled descriptors.
type GallerySource interface {
	Gallery(ctx context.Context) (matcher.Gallery, error)
	GalleryVersion(ctx context.Context) (int64, error)
}

// Station runs one Session per camera and keeps the shared matcher in sync
// with the gallery.
type Station struct {
	sessions []*Session
	matcher  *matcher.Matcher
	gallery  GallerySource
	refresh  time.Duration
	log      *zap.Logger
}

// NewStation runs sessions against m and reloads the gallery every refresh.
func NewStation(m *matcher.Matcher, gallery GallerySource, refresh time.Duration, log *zap.Logger, sessions ...*Session) *Station {
	if refresh <= 0 {
		refresh = DefaultGalleryRefresh
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Station{sessions: sessions, matcher: m, gallery: gallery, refresh: refresh, log: log}
}

// Sync loads the gallery when its version differs from the loaded one.
func (st *Station) Sync(ctx context.Context) error {
	v, err := st.gallery.GalleryVersion(ctx)
	if err != nil {
		galleryReloads.WithLabelValues("error").Inc()
		return err
	}
	if v == st.matcher.Version() {
		return nil
	}
	g, err := st.gallery.Gallery(ctx)
	if err != nil {
		galleryReloads.WithLabelValues("error").Inc()
		return err
	}
	st.matcher.Load(g)
	galleryReloads.WithLabelValues("loaded").Inc()
	return nil
}

// Run blocks until ctx is cancelled. A failed initial gallery load is logged
// and retried on the refresh ticker; sessions match nothing until then.
func (st *Station) Run(ctx context.Context) error {
	if err := st.Sync(ctx); err != nil {
		st.log.Warn("initial gallery load failed", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(st.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := st.Sync(ctx); err != nil {
					st.log.Warn("gallery refresh failed", zap.Error(err))
				}
			}
		}
	})
	for _, s := range st.sessions {
		s := s
		g.Go(func() error { return s.Run(ctx) })
	}
	return g.Wait()
}
