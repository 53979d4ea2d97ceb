package medication

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

var prescriptionColumns = []string{"id", "clinic_id", "patient_id", "appointment_id", "doctor_id", "notes", "created_at"}

var medicationColumns = []string{"id", "prescription_id", "name", "dosage", "route", "frequency", "duration",
	"instructions", "ndc_code", "rxnorm_code", "quantity", "refills"}

func TestPrescriptionRepo_ListByPatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	clinicID, patientID := uuid.New(), uuid.New()
	newer, older := uuid.New(), uuid.New()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var noUUID *uuid.UUID
	var noStr *string
	var noInt *int

	mock.ExpectQuery(regexp.QuoteMeta("WHERE clinic_id = $1 AND patient_id = $2 ORDER BY created_at DESC LIMIT $3")).
		WithArgs(clinicID, patientID, 100).
		WillReturnRows(pgxmock.NewRows(prescriptionColumns).
			AddRow(newer, clinicID, patientID, noUUID, noUUID, strPtr("take with food"), now).
			AddRow(older, clinicID, patientID, noUUID, noUUID, noStr, now.Add(-24*time.Hour)))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.clinic_id = $1 AND m.prescription_id = ANY($2::uuid[])")).
		WithArgs(clinicID, []string{newer.String(), older.String()}).
		WillReturnRows(pgxmock.NewRows(medicationColumns).
			AddRow(uuid.New(), newer, "Metformin", strPtr("500mg"), strPtr("ORAL"), strPtr("BID"), noStr,
				noStr, noStr, strPtr("860975"), intPtr(60), intPtr(2)).
			AddRow(uuid.New(), newer, "Lisinopril", strPtr("10mg"), noStr, strPtr("QD"), noStr,
				noStr, noStr, noStr, noInt, noInt).
			AddRow(uuid.New(), older, "Amoxicillin", strPtr("250mg"), strPtr("ORAL"), strPtr("TID"), strPtr("7 days"),
				noStr, strPtr("0093-3109"), noStr, noInt, noInt))

	items, err := NewPrescriptionRepo(mock).ListByPatient(context.Background(), clinicID, patientID, 100)
	if err != nil {
		t.Fatalf("ListByPatient() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 prescriptions, got %d", len(items))
	}
	if items[0].ID != newer || len(items[0].Medications) != 2 {
		t.Errorf("expected newest prescription first with 2 lines, got %s with %d", items[0].ID, len(items[0].Medications))
	}
	if len(items[1].Medications) != 1 || items[1].Medications[0].Name != "Amoxicillin" {
		t.Errorf("unexpected lines on older prescription: %+v", items[1].Medications)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPrescriptionRepo_ListByPatient_NoPrescriptions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	clinicID, patientID := uuid.New(), uuid.New()
	mock.ExpectQuery("FROM prescription").
		WithArgs(clinicID, patientID, 5).
		WillReturnRows(pgxmock.NewRows(prescriptionColumns))

	items, err := NewPrescriptionRepo(mock).ListByPatient(context.Background(), clinicID, patientID, 5)
	if err != nil {
		t.Fatalf("ListByPatient() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no prescriptions, got %d", len(items))
	}
	// No medication query is issued for an empty result.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPrescriptionRepo_ListByPatient_MedicationError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	clinicID, patientID := uuid.New(), uuid.New()
	var noUUID *uuid.UUID
	var noStr *string
	mock.ExpectQuery("FROM prescription").
		WillReturnRows(pgxmock.NewRows(prescriptionColumns).
			AddRow(uuid.New(), clinicID, patientID, noUUID, noUUID, noStr, time.Now()))
	mock.ExpectQuery("FROM medication m").WillReturnError(errors.New("boom"))

	if _, err := NewPrescriptionRepo(mock).ListByPatient(context.Background(), clinicID, patientID, 100); err == nil {
		t.Fatal("expected error")
	}
}

func TestPrescriptionRepo_ListByPatient_LinesInEntryOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	clinicID, patientID, rxID := uuid.New(), uuid.New(), uuid.New()
	var noUUID *uuid.UUID
	var noStr *string
	var noInt *int

	mock.ExpectQuery("FROM prescription").
		WillReturnRows(pgxmock.NewRows(prescriptionColumns).
			AddRow(rxID, clinicID, patientID, noUUID, noUUID, noStr, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY m.prescription_id, m.line_no")).
		WithArgs(clinicID, []string{rxID.String()}).
		WillReturnRows(pgxmock.NewRows(medicationColumns).
			AddRow(uuid.New(), rxID, "Warfarin", noStr, noStr, noStr, noStr, noStr, noStr, noStr, noInt, noInt).
			AddRow(uuid.New(), rxID, "Aspirin", noStr, noStr, noStr, noStr, noStr, noStr, noStr, noInt, noInt))

	items, err := NewPrescriptionRepo(mock).ListByPatient(context.Background(), clinicID, patientID, 100)
	if err != nil {
		t.Fatalf("ListByPatient() error: %v", err)
	}
	lines := items[0].Medications
	if len(lines) != 2 || lines[0].Name != "Warfarin" || lines[1].Name != "Aspirin" {
		t.Errorf("expected lines in entry order, got %+v", lines)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
