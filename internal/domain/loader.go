package domain

import (
	"context"
	"sync"
)

// Loader wraps a Service with per-user generation tracking so that when
// loads for the same user overlap, only the newest invocation's result is
// applied as the current view. Superseded loads still return their result
// to the caller that started them, but never overwrite a newer snapshot.
// In-flight fetches are not aborted on supersession; they are read-only.
type Loader struct {
	service *Service

	mu         sync.Mutex
	dashGens   map[string]uint64
	areaGens   map[string]uint64
	dashboards map[string]*Dashboard
	areaViews  map[string]*AreaInsights
}

// NewLoader constructs a Loader.
func NewLoader(service *Service) *Loader {
	return &Loader{
		service:    service,
		dashGens:   make(map[string]uint64),
		areaGens:   make(map[string]uint64),
		dashboards: make(map[string]*Dashboard),
		areaViews:  make(map[string]*AreaInsights),
	}
}

// LoadDashboard runs a dashboard load for the user and applies the result
// unless a newer load has started in the meantime.
func (l *Loader) LoadDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	l.mu.Lock()
	l.dashGens[userID]++
	gen := l.dashGens[userID]
	l.mu.Unlock()

	view, err := l.service.LoadDashboard(ctx, userID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dashGens[userID] == gen {
		l.dashboards[userID] = view
	}
	return view, nil
}

// LoadAreaInsights runs a per-area load for the user with the same
// supersession rule as LoadDashboard.
func (l *Loader) LoadAreaInsights(ctx context.Context, userID string) (*AreaInsights, error) {
	l.mu.Lock()
	l.areaGens[userID]++
	gen := l.areaGens[userID]
	l.mu.Unlock()

	view, err := l.service.LoadAreaInsights(ctx, userID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.areaGens[userID] == gen {
		l.areaViews[userID] = view
	}
	return view, nil
}

// ToggleRecommendation writes a selection and invalidates the user's
// dashboard snapshot so the next load cannot be satisfied by a view that
// predates the write.
func (l *Loader) ToggleRecommendation(ctx context.Context, userID, category, text string, selected bool) error {
	if err := l.service.ToggleRecommendation(ctx, userID, category, text, selected); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.dashboards, userID)
	return nil
}

// CurrentDashboard returns the latest applied dashboard for the user.
func (l *Loader) CurrentDashboard(userID string) (*Dashboard, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	view, ok := l.dashboards[userID]
	return view, ok
}

// CurrentAreaInsights returns the latest applied per-area view for the user.
func (l *Loader) CurrentAreaInsights(userID string) (*AreaInsights, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	view, ok := l.areaViews[userID]
	return view, ok
}
