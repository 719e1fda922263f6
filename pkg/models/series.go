package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Response field names returned by the subscription watch API
const (
	FieldDate              = "date"
	FieldHasData           = "has_data"
	FieldHasInfinite       = "has_infinite_quantity"
	FieldCores             = "cores"
	FieldSockets           = "sockets"
	FieldPhysicalCores     = "physical_cores"
	FieldPhysicalSockets   = "physical_sockets"
	FieldHypervisorCores   = "hypervisor_cores"
	FieldHypervisorSockets = "hypervisor_sockets"
	FieldCloudCores        = "cloud_cores"
	FieldCloudSockets      = "cloud_sockets"
	FieldCloudInstances    = "cloud_instance_count"
	FieldInstanceCount     = "instance_count"
)

// ResponseSchema lists the numeric fields a sample is expected to carry.
// Every recognized field defaults to Undefined when a sample omits it.
var ResponseSchema = []string{
	FieldCores,
	FieldSockets,
	FieldPhysicalCores,
	FieldPhysicalSockets,
	FieldHypervisorCores,
	FieldHypervisorSockets,
	FieldCloudCores,
	FieldCloudSockets,
	FieldCloudInstances,
	FieldInstanceCount,
}

// IsSchemaField reports whether name is one of the recognized numeric fields
func IsSchemaField(name string) bool {
	for _, f := range ResponseSchema {
		if f == name {
			return true
		}
	}
	return false
}

// TimeSeriesEntry is one sample of a report or capacity series
type TimeSeriesEntry struct {
	Date time.Time
	// HasData is nil when the API omitted the flag. Only an explicit false
	// marks a placeholder sample.
	HasData     *bool
	HasInfinite bool
	Values      map[string]Value
}

// Skipped reports whether the sample is a placeholder without a measurement
func (e TimeSeriesEntry) Skipped() bool {
	return e.HasData != nil && !*e.HasData
}

// Field returns the named value. Missing keys read as Undefined.
func (e TimeSeriesEntry) Field(name string) Value {
	if e.Values == nil {
		return Undefined()
	}
	return e.Values[name]
}

// Series is an ordered sequence of samples, oldest first
type Series []TimeSeriesEntry

// SeriesPair is the resolved payload of one product fetch
type SeriesPair struct {
	Report   Series `json:"report"`
	Capacity Series `json:"capacity"`
}

// Bool returns a pointer to b, for building HasData flags
func Bool(b bool) *bool {
	return &b
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
}

// ParseDate parses the date formats the API and fixtures use
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", s)
}

// UnmarshalJSON decodes one sample. Malformed content never fails the
// series: a non-object sample decodes as an empty entry, and flags of the
// wrong type are read per sample.
func (e *TimeSeriesEntry) UnmarshalJSON(data []byte) error {
	entry := TimeSeriesEntry{Values: make(map[string]Value)}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*e = entry
		return nil
	}

	for key, msg := range raw {
		switch key {
		case FieldDate:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				continue
			}
			if t, err := ParseDate(s); err == nil {
				entry.Date = t
			}
		case FieldHasData:
			// only a literal false marks a placeholder
			var b bool
			if err := json.Unmarshal(msg, &b); err == nil && string(msg) != "null" {
				entry.HasData = Bool(b)
			}
		case FieldHasInfinite:
			entry.HasInfinite = truthy(msg)
		default:
			var v Value
			if err := v.UnmarshalJSON(msg); err != nil {
				// non-numeric fields are not measurements
				continue
			}
			entry.Values[key] = v
		}
	}

	*e = entry
	return nil
}

// truthy reads a loosely typed flag: false, null, 0, NaN and "" are false,
// anything else is true
func truthy(msg json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

func (e TimeSeriesEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Values)+3)
	if !e.Date.IsZero() {
		out[FieldDate] = e.Date.UTC().Format(time.RFC3339)
	}
	if e.HasData != nil {
		out[FieldHasData] = *e.HasData
	}
	if e.HasInfinite {
		out[FieldHasInfinite] = true
	}
	for k, v := range e.Values {
		if v.IsUndefined() {
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// DataPoint is the single most recent usable sample of a product, reduced
// to report, capacity and utilization percentage
type DataPoint struct {
	Date       time.Time `json:"date,omitzero"`
	Report     Value     `json:"report,omitzero"`
	Capacity   Value     `json:"capacity,omitzero"`
	Percentage Value     `json:"percentage,omitzero"`
}

// IsEmpty reports whether no usable sample was found
func (d DataPoint) IsEmpty() bool {
	return d.Date.IsZero() && d.Report.IsUndefined() &&
		d.Capacity.IsUndefined() && d.Percentage.IsUndefined()
}
