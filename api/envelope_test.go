package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

func TestRespondSuccessMergesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	respondSuccess(rec, 200, map[string]any{"pools": []string{"tank"}})

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "success" {
		t.Errorf("status = %v, want success", body["status"])
	}
	if rec.Code != 200 {
		t.Errorf("code = %d, want 200", rec.Code)
	}
}

func TestRespondErrorUsesMessageNotSniffing(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, zfserr.New(zfserr.NotFound, "dataset %q not found", "tank/missing"))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "error" {
		t.Errorf("status = %v, want error", body["status"])
	}
	if body["message"] != `dataset "tank/missing" not found` {
		t.Errorf("message = %v", body["message"])
	}
}

func TestStatusForErrorMapsEveryKind(t *testing.T) {
	cases := map[zfserr.Kind]int{
		zfserr.Validation:      400,
		zfserr.NotFound:        404,
		zfserr.AlreadyExists:   409,
		zfserr.Busy:            409,
		zfserr.SafetyLocked:    403,
		zfserr.RollbackBlocked: 409,
		zfserr.EngineError:     500,
		zfserr.SubprocessError: 500,
		zfserr.IoError:         500,
		zfserr.Internal:        500,
	}
	for kind, want := range cases {
		err := zfserr.New(kind, "boom")
		if got := statusForError(err); got != want {
			t.Errorf("statusForError(%v) = %d, want %d", kind, got, want)
		}
	}
}
