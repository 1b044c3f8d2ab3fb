package medicalrecord

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var validRecordTypes = map[string]bool{
	"consultation": true, "lab_result": true, "prescription": true,
	"diagnosis": true, "procedure": true, "imaging": true, "vaccination": true,
}

type Service struct {
	records Repository
}

func NewService(records Repository) *Service {
	return &Service{records: records}
}

func (s *Service) Create(ctx context.Context, r *MedicalRecord) error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if r.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.RecordType == "" {
		r.RecordType = "consultation"
	}
	if !validRecordTypes[r.RecordType] {
		return fmt.Errorf("invalid record_type: %s", r.RecordType)
	}
	if err := validateVitals(r.VitalSigns); err != nil {
		return err
	}
	if r.RecordDate.IsZero() {
		r.RecordDate = time.Now()
	}
	return s.records.Create(ctx, r)
}

func validateVitals(v *VitalSigns) error {
	if v == nil {
		return nil
	}
	if v.TemperatureC != nil && (*v.TemperatureC < 25 || *v.TemperatureC > 45) {
		return fmt.Errorf("temperature_c out of range")
	}
	if v.HeartRateBPM != nil && (*v.HeartRateBPM <= 0 || *v.HeartRateBPM > 300) {
		return fmt.Errorf("heart_rate_bpm out of range")
	}
	if v.BloodPressureSys != nil && *v.BloodPressureSys <= 0 {
		return fmt.Errorf("blood_pressure_sys out of range")
	}
	if v.BloodPressureDia != nil && *v.BloodPressureDia <= 0 {
		return fmt.Errorf("blood_pressure_dia out of range")
	}
	if v.OxygenSaturation != nil && (*v.OxygenSaturation <= 0 || *v.OxygenSaturation > 100) {
		return fmt.Errorf("oxygen_saturation out of range")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, r *MedicalRecord) error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if r.RecordType != "" && !validRecordTypes[r.RecordType] {
		return fmt.Errorf("invalid record_type: %s", r.RecordType)
	}
	if err := validateVitals(r.VitalSigns); err != nil {
		return err
	}
	return s.records.Update(ctx, r)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]*MedicalRecord, int, error) {
	return s.records.Search(ctx, params)
}
