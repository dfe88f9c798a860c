package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestCatalog(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		details   bool
	}{
		{CodeValidation, http.StatusBadRequest, false, true},
		{CodeUnauthorized, http.StatusUnauthorized, false, false},
		{CodeForbidden, http.StatusForbidden, false, false},
		{CodeNotFound, http.StatusNotFound, false, false},
		{CodeCapacityExceeded, http.StatusConflict, false, true},
		{CodePayloadTooLarge, http.StatusRequestEntityTooLarge, false, true},
		{CodeUnsupportedMedia, http.StatusUnsupportedMediaType, false, true},
		{CodeIdempotency, http.StatusConflict, false, true},
		{CodeRateLimit, http.StatusTooManyRequests, true, false},
		{CodeInternal, http.StatusInternalServerError, true, false},
		{CodeDependency, http.StatusServiceUnavailable, true, true},
	}
	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status || meta.Retryable != tt.retryable || meta.DetailsAllowed != tt.details {
			t.Fatalf("%s: unexpected metadata %+v", tt.code, meta)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("%s: missing public message", tt.code)
		}
	}
	if MetadataFor("SOMETHING_UNKNOWN") != MetadataFor(CodeInternal) {
		t.Fatal("unknown codes should fall back to internal metadata")
	}
}

func TestConstructors(t *testing.T) {
	capped := Newf(CodeCapacityExceeded, "category %s is full", "gallery")
	if capped.Code() != CodeCapacityExceeded || capped.Message() != "category gallery is full" {
		t.Fatalf("unexpected error %s / %s", capped.Code(), capped.Message())
	}
	if capped.Details() != nil {
		t.Fatalf("expected no details, got %v", capped.Details())
	}
	details, ok := capped.WithDetails(map[string]any{"limit": 6}).Details().(map[string]any)
	if !ok || details["limit"] != 6 {
		t.Fatalf("unexpected details %#v", details)
	}

	cause := stderrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "saving media")
	if !stderrors.Is(wrapped, cause) {
		t.Fatal("expected wrapped error to keep its cause")
	}
	if got := wrapped.Error(); got != "DEPENDENCY_ERROR: saving media: boom" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Wrap(CodeNotFound, nil, "gone").Error(); got != "NOT_FOUND: gone" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	if e.Code() != CodeInternal || e.Message() != "" {
		t.Fatalf("unexpected nil error values %s %q", e.Code(), e.Message())
	}
	if e.WithDetails("x") != nil {
		t.Fatal("expected WithDetails on nil to stay nil")
	}
	if e.Unwrap() != nil {
		t.Fatal("expected nil cause")
	}
}

func TestAsAndIsCodeFollowChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	if As(err) == nil {
		t.Fatal("expected typed error in chain")
	}
	if !IsCode(err, CodeForbidden) || IsCode(err, CodeNotFound) {
		t.Fatalf("unexpected code match for %v", err)
	}
	if IsCode(stderrors.New("plain"), CodeInternal) {
		t.Fatal("untyped errors carry no code")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestDump(t *testing.T) {
	d := Dump(Wrap(CodeInternal, stderrors.New("disk full"), "writing blob"))
	if d.Code != CodeInternal || !d.Retryable {
		t.Fatalf("unexpected dump %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %v", d.Chain)
	}
	if d.Postgres != nil {
		t.Fatalf("expected no postgres info, got %+v", d.Postgres)
	}
	empty := Dump(nil)
	if empty.TopMessage != "" || empty.Code != "" || len(empty.Chain) != 0 || empty.Postgres != nil {
		t.Fatalf("expected empty dump for nil, got %+v", empty)
	}
}

func TestDumpPostgresDrivers(t *testing.T) {
	pgx := Dump(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_media_references_target", TableName: "media_references"}))
	if pgx.Postgres == nil || pgx.Postgres.Code != "23505" {
		t.Fatalf("expected pgx details, got %+v", pgx.Postgres)
	}
	if got := pgx.Fields()["pg_constraint"]; got != "ux_media_references_target" {
		t.Fatalf("unexpected constraint field %v", got)
	}

	pqDump := Dump(&pq.Error{Code: "40001", Table: "profiles"})
	if pqDump.Postgres == nil || pqDump.Postgres.Code != "40001" || pqDump.Postgres.Table != "profiles" {
		t.Fatalf("expected lib/pq details, got %+v", pqDump.Postgres)
	}
}
