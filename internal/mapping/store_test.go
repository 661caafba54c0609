package mapping

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/botpilote/ghlbridge/internal/apperr"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "ghlbridge-mapping-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	store, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testMapping(chatbotID string) Mapping {
	return Mapping{
		ID:               uuid.New().String(),
		ChatbotID:        chatbotID,
		FieldType:        FieldTypeCustomValue,
		GHLFieldKey:      "welcome_message",
		ChatbotParameter: ParamWelcomeMessage,
		LocationID:       "loc_1",
		UpdatedAt:        time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGet(t *testing.T) {
	store := testStore(t)
	m := testMapping("bot_1")

	if err := store.Create(m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GHLFieldKey != "welcome_message" {
		t.Errorf("ghl_field_key = %q", got.GHLFieldKey)
	}
	if got.ChatbotParameter != ParamWelcomeMessage {
		t.Errorf("chatbot_parameter = %q", got.ChatbotParameter)
	}
}

func TestGetMissing(t *testing.T) {
	store := testStore(t)
	if _, err := store.Get("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListByChatbot(t *testing.T) {
	store := testStore(t)

	for i := 0; i < 3; i++ {
		m := testMapping("bot_1")
		m.UpdatedAt = m.UpdatedAt.Add(time.Duration(i) * time.Second)
		if err := store.Create(m); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := store.Create(testMapping("bot_other")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := store.ListByChatbot("bot_1")
	if err != nil {
		t.Fatalf("ListByChatbot: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	// Newest first.
	if list[0].UpdatedAt.Before(list[2].UpdatedAt) {
		t.Error("list not sorted newest first")
	}
}

func TestUpdate(t *testing.T) {
	store := testStore(t)
	m := testMapping("bot_1")
	if err := store.Create(m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	m.GHLFieldKey = "openai_key"
	m.ChatbotParameter = ParamOpenAIKey
	if err := store.Update(m); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := store.Get(m.ID)
	if got.GHLFieldKey != "openai_key" {
		t.Errorf("ghl_field_key = %q after update", got.GHLFieldKey)
	}
}

func TestUpdateMissing(t *testing.T) {
	store := testStore(t)
	m := testMapping("bot_1")
	if err := store.Update(m); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := testStore(t)
	m := testMapping("bot_1")
	if err := store.Create(m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Delete(m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(m.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(m.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestValidate(t *testing.T) {
	valid := testMapping("bot_1")
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid mapping rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Mapping)
	}{
		{"missing chatbot id", func(m *Mapping) { m.ChatbotID = "" }},
		{"bad field type", func(m *Mapping) { m.FieldType = "workflow" }},
		{"missing field key", func(m *Mapping) { m.GHLFieldKey = "" }},
		{"field key too long", func(m *Mapping) {
			m.GHLFieldKey = string(make([]byte, 101))
		}},
		{"bad parameter", func(m *Mapping) { m.ChatbotParameter = "voice" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := testMapping("bot_1")
			tc.mutate(&m)
			if err := m.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
