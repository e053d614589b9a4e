package service

import (
	"context"
	"strings"
	"testing"

	"weddingrsvp/internal/models"
)

func TestImportCreatesGuests(t *testing.T) {
	store := newFakeStore()
	svc := NewImportService(store)

	report, err := svc.Import(context.Background(), []ImportRecord{
		{FullName: "Ana García", Email: "ana@example.com", Phone: "+34 612 345 678", Language: "es", InviteType: "full", MaxAccompanying: 2, IsPrimary: true, Side: "bride"},
		{FullName: "Ion Popescu", Phone: "+40721111222", Language: "ro", InviteType: "ceremony"},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Created != 2 || report.Updated != 0 || len(report.Errors) != 0 {
		t.Fatalf("report = %+v, want 2 created", report)
	}

	ana, err := store.GuestByEmail(context.Background(), "ana@example.com")
	if err != nil || ana == nil {
		t.Fatalf("created guest not found: %v", err)
	}
	if !strings.HasPrefix(ana.GuestCode, "ANAGARC-") {
		t.Errorf("generated code = %q, want ANAGARC- prefix", ana.GuestCode)
	}
	if ana.Phone != "+34612345678" {
		t.Errorf("phone = %q, want normalized", ana.Phone)
	}
	if ana.Language != models.LangSpanish || ana.InviteType != models.InviteFull {
		t.Errorf("guest fields not applied: %+v", ana)
	}
}

func TestImportUpsertsByCode(t *testing.T) {
	existing := &models.Guest{
		GuestCode:       "ANAGARC-8H2K",
		FullName:        "Ana García",
		Email:           "ana@example.com",
		Language:        models.LangSpanish,
		InviteType:      models.InviteCeremony,
		MaxAccompanying: 0,
	}
	attending := true
	existing.Confirmed = &attending

	store := newFakeStore(existing)
	svc := NewImportService(store)

	report, err := svc.Import(context.Background(), []ImportRecord{
		{GuestCode: "anagarc-8h2k", FullName: "Ana García de Soto", Email: "ana@example.com", InviteType: "full", MaxAccompanying: 3},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Updated != 1 || report.Created != 0 {
		t.Fatalf("report = %+v, want 1 updated", report)
	}

	updated, _ := store.GuestByCode(context.Background(), "ANAGARC-8H2K")
	if updated.FullName != "Ana García de Soto" || updated.MaxAccompanying != 3 {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.Confirmed == nil || !*updated.Confirmed {
		t.Error("re-import erased the guest's RSVP state")
	}
}

func TestImportCreatesWithProvidedCode(t *testing.T) {
	store := newFakeStore()
	svc := NewImportService(store)

	report, err := svc.Import(context.Background(), []ImportRecord{
		{GuestCode: "CUSTOM-1234", FullName: "Ion Popescu", Phone: "+40721111222"},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Created != 1 {
		t.Fatalf("report = %+v, want 1 created", report)
	}

	guest, _ := store.GuestByCode(context.Background(), "CUSTOM-1234")
	if guest == nil {
		t.Fatal("guest with provided code not created")
	}
}

func TestImportReportsBadRowsAndContinues(t *testing.T) {
	store := newFakeStore()
	svc := NewImportService(store)

	report, err := svc.Import(context.Background(), []ImportRecord{
		{FullName: "", Email: "ana@example.com"},
		{FullName: "No Contact At All"},
		{FullName: "Bad Email", Email: "not-an-email"},
		{FullName: "Bad Language", Email: "x@example.com", Language: "de"},
		{FullName: "Ion Popescu", Phone: "+40721111222"},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if report.Created != 1 {
		t.Errorf("created = %d, want 1", report.Created)
	}
	if len(report.Errors) != 4 {
		t.Fatalf("errors = %+v, want 4", report.Errors)
	}
	for i, wantRow := range []int{1, 2, 3, 4} {
		if report.Errors[i].Row != wantRow {
			t.Errorf("error %d row = %d, want %d", i, report.Errors[i].Row, wantRow)
		}
	}
}
