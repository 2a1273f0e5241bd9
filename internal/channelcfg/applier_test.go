package channelcfg

import (
	"context"
	"errors"
	"testing"

	"github.com/edirooss/headend-server/internal/unit"
	"go.uber.org/zap"
)

type memStore struct {
	saved map[int64]*ChannelConfig
	err   error
}

func (s *memStore) Save(_ context.Context, channelID int64, cfg *ChannelConfig) error {
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = make(map[int64]*ChannelConfig)
	}
	s.saved[channelID] = cfg
	return nil
}

type recordingRestarter struct {
	restarted []unit.Kind
	failOn    unit.Kind
	err       error
}

func (r *recordingRestarter) Restart(_ context.Context, _ int64, kind unit.Kind) error {
	if kind == r.failOn && r.err != nil {
		return r.err
	}
	r.restarted = append(r.restarted, kind)
	return nil
}

func TestApplySavesThenRestartsInOrder(t *testing.T) {
	store := &memStore{}
	restarter := &recordingRestarter{}
	a := NewApplier(zap.NewNop(), store, restarter)

	err := a.Apply(context.Background(), 7, validConfig(), []unit.Kind{unit.KindIngest, unit.KindPublish})
	if err != nil {
		t.Fatal(err)
	}
	if store.saved[7] == nil {
		t.Fatal("config not persisted")
	}
	if len(restarter.restarted) != 2 || restarter.restarted[0] != unit.KindIngest || restarter.restarted[1] != unit.KindPublish {
		t.Errorf("restarted = %v, want [ingest publish] in request order", restarter.restarted)
	}
}

func TestApplyValidationFailureSkipsSaveAndRestart(t *testing.T) {
	store := &memStore{}
	restarter := &recordingRestarter{}
	a := NewApplier(zap.NewNop(), store, restarter)

	bad := validConfig()
	bad.Ingest.TargetHost = ""

	err := a.Apply(context.Background(), 7, bad, []unit.Kind{unit.KindIngest})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Error("invalid config was persisted")
	}
	if len(restarter.restarted) != 0 {
		t.Error("services restarted despite validation failure")
	}
}

func TestApplyRejectsUnknownKindBeforeAnything(t *testing.T) {
	store := &memStore{}
	restarter := &recordingRestarter{}
	a := NewApplier(zap.NewNop(), store, restarter)

	err := a.Apply(context.Background(), 7, validConfig(), []unit.Kind{unit.Kind("transcode")})
	if !errors.Is(err, unit.ErrUnknownServiceKind) {
		t.Fatalf("expected ErrUnknownServiceKind, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Error("config persisted despite unknown restart kind")
	}
}

func TestApplySaveFailureSkipsRestarts(t *testing.T) {
	store := &memStore{err: errors.New("store unavailable")}
	restarter := &recordingRestarter{}
	a := NewApplier(zap.NewNop(), store, restarter)

	err := a.Apply(context.Background(), 7, validConfig(), []unit.Kind{unit.KindIngest})
	if err == nil || !errors.Is(err, store.err) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if len(restarter.restarted) != 0 {
		t.Error("services restarted despite persistence failure")
	}
}

func TestApplyRestartFailureIsFailFast(t *testing.T) {
	store := &memStore{}
	boom := errors.New("unit stuck")
	restarter := &recordingRestarter{failOn: unit.KindIngest, err: boom}
	a := NewApplier(zap.NewNop(), store, restarter)

	err := a.Apply(context.Background(), 7, validConfig(), []unit.Kind{unit.KindIngest, unit.KindRecord, unit.KindPublish})
	if !errors.Is(err, boom) {
		t.Fatalf("expected restart error, got %v", err)
	}
	if len(restarter.restarted) != 0 {
		t.Errorf("later kinds restarted after a failure: %v", restarter.restarted)
	}
	// Persisting before restarting is part of the contract: the saved config
	// is the one the surviving services will pick up on the next restart.
	if store.saved[7] == nil {
		t.Error("config not persisted before restart phase")
	}
}
