// Package player drives an MPRIS media player over the session bus. All
// playback calls are best effort: failures are logged and reported as false
// or zero values.
package player

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"karolbroda.com/lyricsync/internal/logger"
	"karolbroda.com/lyricsync/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

const (
	StatusPlaying = "Playing"
	StatusPaused  = "Paused"
	StatusStopped = "Stopped"
)

type Event int

const (
	EventTrackChanged Event = iota
	EventSeeked
	EventPlaybackStateChanged
)

type EventData struct {
	Type       Event
	Track      *track.Info
	PositionMs int64
	Status     string
}

type State struct {
	Track  *track.Info
	Status string
}

func (s State) Playing() bool { return s.Status == StatusPlaying }

type Service struct {
	bus        *dbus.Conn
	service    string
	obj        dbus.BusObject
	log        *logger.Logger
	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	eventChan  chan EventData
	state      State
	mu         sync.RWMutex
}

func NewService(bus *dbus.Conn, mprisService string, log *logger.Logger) (*Service, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if mprisService == "" {
		return nil, errors.New("empty mpris service name")
	}

	s := newService(bus.Object(mprisService, mprisPath), mprisService, log)
	s.bus = bus
	return s, nil
}

func newService(obj dbus.BusObject, mprisService string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		service:   mprisService,
		obj:       obj,
		log:       log,
		eventChan: make(chan EventData, 16),
	}
}

func (s *Service) Name() string { return s.service }

// Watch subscribes to the player's property and seek signals and starts
// translating them into events.
func (s *Service) Watch() error {
	if s.bus == nil {
		return errors.New("no bus connection to watch")
	}

	signalChan := make(chan *dbus.Signal, 10)
	s.signalChan = signalChan
	s.stopChan = make(chan struct{})

	s.bus.Signal(signalChan)

	matchPropertiesChanged := fmt.Sprintf(
		"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
		s.service, mprisPath,
	)
	matchSeeked := fmt.Sprintf(
		"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
		s.service, mprisPlayerIface, mprisPath,
	)

	err := s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchPropertiesChanged).Err
	if err != nil {
		return fmt.Errorf("failed to add properties match: %w", err)
	}

	err = s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchSeeked).Err
	if err != nil {
		return fmt.Errorf("failed to add seeked match: %w", err)
	}

	go s.signalLoop()

	return nil
}

// Close stops the signal loop. It does not touch playback.
func (s *Service) Close() {
	s.stopOnce.Do(func() {
		if s.stopChan != nil {
			close(s.stopChan)
		}
		if s.bus != nil && s.signalChan != nil {
			s.bus.RemoveSignal(s.signalChan)
		}
	})
}

func (s *Service) Events() <-chan EventData {
	return s.eventChan
}

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{Status: s.state.Status}
	if s.state.Track != nil {
		trackCopy := *s.state.Track
		st.Track = &trackCopy
	}
	return st
}

// Play opens the file at path in the player and starts playback.
func (s *Service) Play(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		s.log.Error("failed to resolve %s: %v", path, err)
		return false
	}

	uri := (&url.URL{Scheme: "file", Path: abs}).String()
	if err := s.call("OpenUri", uri); err != nil {
		s.log.Error("failed to open %s: %v", uri, err)
		return false
	}
	if err := s.call("Play"); err != nil {
		s.log.Error("failed to start playback: %v", err)
		return false
	}

	s.setStatus(StatusPlaying)
	return true
}

func (s *Service) Stop() {
	if err := s.call("Stop"); err != nil {
		s.log.Warn("failed to stop playback: %v", err)
		return
	}
	s.setStatus(StatusStopped)
}

func (s *Service) Pause() {
	if err := s.call("Pause"); err != nil {
		s.log.Warn("failed to pause playback: %v", err)
		return
	}
	s.setStatus(StatusPaused)
}

func (s *Service) Resume() bool {
	if err := s.call("Play"); err != nil {
		s.log.Warn("failed to resume playback: %v", err)
		return false
	}
	s.setStatus(StatusPlaying)
	return true
}

func (s *Service) IsPaused() bool {
	status, err := s.PlaybackStatus()
	if err != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.state.Status == StatusPaused
	}
	return status == StatusPaused
}

func (s *Service) PlaybackStatus() (string, error) {
	prop, err := s.obj.GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return "", fmt.Errorf("failed to get playback status: %w", err)
	}

	status, ok := prop.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected playback status type %T", prop.Value())
	}
	return status, nil
}

// TimeMs returns the playback position, or 0 when it cannot be read.
func (s *Service) TimeMs() int64 {
	prop, err := s.obj.GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		s.log.Debug("failed to get position property: %v", err)
		return 0
	}

	micros, ok := prop.Value().(int64)
	if !ok || micros < 0 {
		return 0
	}
	return micros / 1000
}

// LengthMs returns the track length from the player's metadata, or 0 when
// it is not known yet.
func (s *Service) LengthMs() int64 {
	metadata, err := s.metadata()
	if err != nil {
		s.log.Debug("failed to get length: %v", err)
		return 0
	}
	return extractMicros(metadata, "mpris:length") / 1000
}

// SetPositionMs seeks to an absolute position. Players that do not expose a
// track id get a relative Seek instead.
func (s *Service) SetPositionMs(ms int64) {
	if ms < 0 {
		ms = 0
	}

	metadata, err := s.metadata()
	if err != nil {
		s.log.Warn("failed to seek: %v", err)
		return
	}

	trackID := extractString(metadata, "mpris:trackid")
	if trackID == "" {
		offset := ms*1000 - s.TimeMs()*1000
		if err := s.call("Seek", offset); err != nil {
			s.log.Warn("failed to seek: %v", err)
		}
		return
	}

	if err := s.call("SetPosition", dbus.ObjectPath(trackID), ms*1000); err != nil {
		s.log.Warn("failed to set position: %v", err)
	}
}

// SetVolume takes a percentage and clamps it to 0..100.
func (s *Service) SetVolume(percent int) {
	err := s.obj.SetProperty(mprisPlayerIface+".Volume", dbus.MakeVariant(volumeToMPRIS(percent)))
	if err != nil {
		s.log.Warn("failed to set volume: %v", err)
	}
}

func (s *Service) CurrentTrack() (*track.Info, error) {
	metadata, err := s.metadata()
	if err != nil {
		return nil, err
	}

	info := trackFromMetadata(metadata)
	if !info.IsValid() {
		return nil, errors.New("player reports no track")
	}
	return info, nil
}

func (s *Service) metadata() (map[string]dbus.Variant, error) {
	prop, err := s.obj.GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	value := prop.Value()
	if value == nil {
		return nil, errors.New("metadata value is nil")
	}

	metadata, ok := value.(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", value)
	}
	return metadata, nil
}

func (s *Service) call(method string, args ...interface{}) error {
	return s.obj.Call(mprisPlayerIface+"."+method, 0, args...).Err
}

func (s *Service) setStatus(status string) {
	s.mu.Lock()
	s.state.Status = status
	s.mu.Unlock()
}

func (s *Service) signalLoop() {
	for {
		select {
		case sig, ok := <-s.signalChan:
			if !ok {
				return
			}
			s.handleSignal(sig)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		s.handlePropertiesChanged(sig)
	case mprisPlayerIface + ".Seeked":
		s.handleSeeked(sig)
	}
}

func (s *Service) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != mprisPlayerIface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	if metadataVariant, exists := changedProps["Metadata"]; exists {
		if metadata, ok := metadataVariant.Value().(map[string]dbus.Variant); ok {
			info := trackFromMetadata(metadata)
			if info.IsValid() {
				s.mu.Lock()
				changed := !info.IsSameTrack(s.state.Track)
				s.state.Track = info
				s.mu.Unlock()

				if changed {
					s.emitEvent(EventData{Type: EventTrackChanged, Track: info})
				}
			}
		}
	}

	if playbackVariant, exists := changedProps["PlaybackStatus"]; exists {
		if status, ok := playbackVariant.Value().(string); ok {
			s.setStatus(status)
			s.emitEvent(EventData{Type: EventPlaybackStateChanged, Status: status})
		}
	}
}

func (s *Service) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}

	micros, ok := sig.Body[0].(int64)
	if !ok || micros < 0 {
		return
	}

	s.emitEvent(EventData{Type: EventSeeked, PositionMs: micros / 1000})
}

func (s *Service) emitEvent(event EventData) {
	select {
	case s.eventChan <- event:
	default:
	}
}

// ListPlayers returns the MPRIS services currently on the bus.
func ListPlayers(bus *dbus.Conn) ([]string, error) {
	var names []string
	err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}
	return filterMPRIS(names), nil
}

func filterMPRIS(names []string) []string {
	var services []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			services = append(services, name)
		}
	}
	return services
}

// Identity returns the player's friendly name, or "" if it has none.
func Identity(bus *dbus.Conn, service string) string {
	variant, err := bus.Object(service, mprisPath).GetProperty(mprisRootIface + ".Identity")
	if err != nil {
		return ""
	}

	identity, _ := variant.Value().(string)
	return identity
}

func trackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	return &track.Info{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		TrackID:    extractString(metadata, "mpris:trackid"),
		URL:        fileURLPath(extractString(metadata, "xesam:url")),
		LengthMs:   extractMicros(metadata, "mpris:length") / 1000,
	}
}

// fileURLPath unescapes file:// urls so they compare equal to plain paths.
func fileURLPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "file" {
		return raw
	}
	return "file://" + u.Path
}

func variantValue(metadata map[string]dbus.Variant, key string) interface{} {
	if metadata == nil {
		return nil
	}
	variant, exists := metadata[key]
	if !exists {
		return nil
	}
	return variant.Value()
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	switch typed := variantValue(metadata, key).(type) {
	case string:
		return typed
	case dbus.ObjectPath:
		return string(typed)
	default:
		return ""
	}
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	switch typed := variantValue(metadata, key).(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
		return ""
	case string:
		return typed
	default:
		return ""
	}
}

func extractMicros(metadata map[string]dbus.Variant, key string) int64 {
	switch typed := variantValue(metadata, key).(type) {
	case int64:
		if typed <= 0 {
			return 0
		}
		return typed
	case uint64:
		return int64(typed)
	case int32:
		if typed <= 0 {
			return 0
		}
		return int64(typed)
	default:
		return 0
	}
}

func volumeToMPRIS(percent int) float64 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return float64(percent) / 100
}
