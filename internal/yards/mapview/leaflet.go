package mapview

import (
	"sync"

	"github.com/itsloashh/yards-app/internal/models"
)

const (
	TileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	MaxZoom = 19
)

// Scene is the document the page hands to Leaflet.
type Scene struct {
	Center  models.Coordinate `json:"center"`
	Zoom    int               `json:"zoom"`
	TileURL string            `json:"tile_url"`
	MaxZoom int               `json:"max_zoom"`
	Markers []Marker          `json:"markers"`
	Circles []Circle          `json:"circles"`
}

// LeafletScene is a Provider that records calls into a Scene.
type LeafletScene struct {
	mu        sync.Mutex
	ready     bool
	destroyed bool
	scene     Scene
}

func NewLeafletScene() *LeafletScene {
	return &LeafletScene{}
}

func (l *LeafletScene) Initialize(center models.Coordinate, zoom int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return ErrMapNotReady
	}
	l.scene = Scene{
		Center:  center,
		Zoom:    clampZoom(zoom),
		TileURL: TileURL,
		MaxZoom: MaxZoom,
		Markers: []Marker{},
		Circles: []Circle{},
	}
	l.ready = true
	return nil
}

func (l *LeafletScene) AddMarker(m Marker) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return ErrMapNotReady
	}
	l.scene.Markers = append(l.scene.Markers, m)
	return nil
}

func (l *LeafletScene) AddCircle(c Circle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return ErrMapNotReady
	}
	l.scene.Circles = append(l.scene.Circles, c)
	return nil
}

func (l *LeafletScene) SetZoom(zoom int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return ErrMapNotReady
	}
	l.scene.Zoom = clampZoom(zoom)
	return nil
}

func (l *LeafletScene) Destroy() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ready = false
	l.destroyed = true
	l.scene = Scene{}
	return nil
}

// Scene returns the recorded scene.
func (l *LeafletScene) Scene() (Scene, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return Scene{}, ErrMapNotReady
	}
	out := l.scene
	out.Markers = append([]Marker(nil), l.scene.Markers...)
	out.Circles = append([]Circle(nil), l.scene.Circles...)
	return out, nil
}

func clampZoom(z int) int {
	if z < 0 {
		return 0
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
