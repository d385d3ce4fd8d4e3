/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/suparena/entitysync/notify"
)

var meta = notify.Meta{EntityType: "Player", Schema: "ratings", Table: "players", Mode: notify.ModeSync}

func TestEventConstructors(t *testing.T) {
	ins := notify.NewInsertEvent(meta, []any{"a", "b"})
	if ins.Kind != notify.KindInsert || ins.Len() != 2 {
		t.Fatalf("Unexpected insert event: %+v", ins)
	}
	if ins.ID.String() == "" || ins.OccurredAt.String() == "" {
		t.Fatal("Events need an id and a timestamp")
	}

	upd := notify.NewUpdateEvent(meta, []any{1}, []any{2}, []string{"Name"})
	if upd.Kind != notify.KindUpdate || upd.Len() != 1 || upd.Entities != nil {
		t.Fatalf("Unexpected update event: %+v", upd)
	}

	del := notify.NewDeleteEvent(meta, []any{"x"})
	if del.Kind != notify.KindDelete || del.Async() {
		t.Fatalf("Unexpected delete event: %+v", del)
	}

	if ins.ID == del.ID {
		t.Fatal("Event ids must be unique")
	}
}

func TestEventSubject(t *testing.T) {
	tests := []struct {
		name string
		meta notify.Meta
		want string
	}{
		{"full", meta, "ratings.players.insert"},
		{"no schema", notify.Meta{Table: "players"}, "players.insert"},
		{"bare", notify.Meta{}, "insert"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := notify.NewInsertEvent(tt.meta, nil).Subject(); got != tt.want {
				t.Fatalf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEventJSON(t *testing.T) {
	ev := notify.NewUpdateEvent(meta, []any{map[string]int{"a": 1}}, []any{map[string]int{"a": 2}}, []string{"a"})
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["kind"] != "update" || decoded["mode"] != "sync" || decoded["table"] != "players" {
		t.Fatalf("Unexpected envelope: %s", data)
	}
	if _, ok := decoded["entities"]; ok {
		t.Fatal("Update events should omit entities")
	}
}

func TestModeText(t *testing.T) {
	var cfg struct {
		Delivery notify.Mode `yaml:"delivery"`
	}
	if err := yaml.Unmarshal([]byte("delivery: sync\n"), &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.Delivery != notify.ModeSync {
		t.Fatalf("Expected sync, got %v", cfg.Delivery)
	}

	var m notify.Mode
	if err := m.UnmarshalText([]byte("")); err != nil || m != notify.ModeAsync {
		t.Fatalf("Empty mode should mean async, got %v (%v)", m, err)
	}
	if err := m.UnmarshalText([]byte("later")); err == nil {
		t.Fatal("Expected error for unknown mode")
	}
}

func TestMulti(t *testing.T) {
	ok := notify.NewRecorder()
	bad := notify.NewRecorder().WithError(errors.New("down"))
	after := notify.NewRecorder()

	err := notify.Multi{ok, bad, after}.Notify(context.Background(), notify.NewInsertEvent(meta, nil))
	if err == nil {
		t.Fatal("Expected the failure to be reported")
	}
	if len(ok.Events()) != 1 || len(after.Events()) != 1 {
		t.Fatal("Every notifier must be called")
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := notify.NewRecorder()
	rec.Notify(ctx, notify.NewInsertEvent(meta, nil))
	rec.Notify(ctx, notify.NewDeleteEvent(meta, nil))
	rec.Notify(ctx, notify.NewInsertEvent(meta, nil))

	if rec.Count(notify.KindInsert) != 2 || rec.Last().Kind != notify.KindInsert {
		t.Fatalf("Unexpected recorder state: %d events", len(rec.Events()))
	}
	rec.Reset()
	if rec.Last() != nil {
		t.Fatal("Reset should clear events")
	}
}
