package measurement

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	tspb "google.golang.org/protobuf/types/known/timestamppb"
)

// Field names used on the wire.
const (
	fieldDeviceID        = "device_id"
	fieldTimestamp       = "timestamp"
	fieldUploadTimestamp = "upload_timestamp"
)

var wireFields = map[string]string{
	Ambient:   "ambient_temp",
	Object:    "object_temp",
	Reference: "reference_temp",
}

// ToProto converts m to a protobuf Struct. Timestamps are RFC 3339 strings.
func (m Measurement) ToProto() (*structpb.Struct, error) {
	fields := map[string]any{
		fieldDeviceID: m.DeviceID,
	}

	ts, err := timestampString(m.Timestamp)
	if err != nil {
		return nil, err
	}
	fields[fieldTimestamp] = ts

	if !m.UploadTimestamp.IsZero() {
		uts, err := timestampString(m.UploadTimestamp)
		if err != nil {
			return nil, err
		}
		fields[fieldUploadTimestamp] = uts
	}

	for name, v := range m.ValueMap() {
		fields[wireFields[name]] = float64(v)
	}

	return structpb.NewStruct(fields)
}

// FromProto is the inverse of ToProto.
func FromProto(s *structpb.Struct) (Measurement, error) {
	f := s.GetFields()

	m := Measurement{
		DeviceID: f[fieldDeviceID].GetStringValue(),
	}

	ts, err := parseTimestamp(f[fieldTimestamp].GetStringValue())
	if err != nil {
		return Measurement{}, err
	}
	m.Timestamp = ts

	if v, ok := f[fieldUploadTimestamp]; ok {
		uts, err := parseTimestamp(v.GetStringValue())
		if err != nil {
			return Measurement{}, err
		}
		m.UploadTimestamp = uts
	}

	for name, dst := range map[string]**float32{
		Ambient:   &m.AmbientTemp,
		Object:    &m.ObjectTemp,
		Reference: &m.ReferenceTemp,
	} {
		v, ok := f[wireFields[name]]
		if !ok {
			continue
		}
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
			return Measurement{}, fmt.Errorf("measurement: field %s is not a number", wireFields[name])
		}
		*dst = Float(float32(v.GetNumberValue()))
	}

	return m, nil
}

// Marshal returns the binary protobuf encoding of m.
func (m Measurement) Marshal() ([]byte, error) {
	s, err := m.ToProto()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// Unmarshal decodes a Measurement encoded with Marshal.
func Unmarshal(b []byte) (Measurement, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return Measurement{}, err
	}
	return FromProto(&s)
}

// ToJSON returns the protobuf JSON encoding of m.
func (m Measurement) ToJSON(indent string) ([]byte, error) {
	s, err := m.ToProto()
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Indent: indent}.Marshal(s)
}

// FromJSON decodes a Measurement encoded with ToJSON.
func FromJSON(b []byte) (Measurement, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(b, &s); err != nil {
		return Measurement{}, err
	}
	return FromProto(&s)
}

func timestampString(t time.Time) (string, error) {
	pbts := tspb.New(t)
	if err := pbts.CheckValid(); err != nil {
		return "", err
	}
	return pbts.AsTime().Format(time.RFC3339Nano), nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("measurement: bad timestamp %q: %w", s, err)
	}
	return t, nil
}
