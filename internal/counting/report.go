package counting

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/intersection.report/internal/fsutil"
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/security"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// ReportSuffix is appended to the road name to form the report file name.
const ReportSuffix = "_traffic_data.json"

// TrafficData is the per-road document written at the end of a run.
type TrafficData struct {
	TotalVehicles int            `json:"total_vehicles"`
	VehicleCounts vehicle.Counts `json:"vehicle_counts"`
	DetectionData DetectionData  `json:"detection_data"`
}

// MarshalJSON writes detections keyed by class name. Every class is present,
// with an empty list when nothing was seen.
func (d DetectionData) MarshalJSON() ([]byte, error) {
	m := make(map[string][]DetectionItem, vehicle.NumClasses)
	for _, class := range vehicle.Classes {
		items := d[class]
		if items == nil {
			items = []DetectionItem{}
		}
		m[class.String()] = items
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads detections keyed by class name, ignoring other keys.
func (d *DetectionData) UnmarshalJSON(data []byte) error {
	var m map[string][]DetectionItem
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out DetectionData
	for name, items := range m {
		class, err := vehicle.ParseClass(name)
		if err != nil {
			continue
		}
		out[class] = append(out[class], items...)
	}
	*d = out
	return nil
}

// ReportPath returns <dir>/<name>/<name>_traffic_data.json with name
// sanitized for use as a path component.
func ReportPath(dir, name string) string {
	base := security.SanitizeFilename(name)
	return filepath.Join(dir, base, base+ReportSuffix)
}

// WriteReport writes the counter's report under dir and returns its path.
func (c *Counter) WriteReport(fsys fsutil.FileSystem, dir string) (string, error) {
	return WriteTrafficData(fsys, dir, c.name, c.Report())
}

// WriteTrafficData writes td as the report for road name under dir. The
// resulting path must stay inside dir.
func WriteTrafficData(fsys fsutil.FileSystem, dir, name string, td TrafficData) (string, error) {
	path := ReportPath(dir, name)
	if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
		return "", fmt.Errorf("invalid report path: %w", err)
	}
	data, err := json.MarshalIndent(td, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// ReadTrafficData loads a report written by WriteTrafficData.
func ReadTrafficData(fsys fsutil.FileSystem, path string) (TrafficData, error) {
	var td TrafficData
	data, err := fsys.ReadFile(path)
	if err != nil {
		return td, err
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return td, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return td, nil
}

// LoadReports reads the report of every road in specs from dir and rebuilds
// the intersection they describe. Road lengths come from specs, since reports
// do not carry them.
func LoadReports(fsys fsutil.FileSystem, dir string, specs []RoadSpec) (road.Intersection, error) {
	in := make(road.Intersection, len(specs))
	for _, rs := range specs {
		td, err := ReadTrafficData(fsys, ReportPath(dir, rs.Name))
		if err != nil {
			return nil, fmt.Errorf("road %q: %w", rs.Name, err)
		}
		in[rs.Name] = road.Snapshot{
			RoadLength:    rs.Length,
			Counts:        td.VehicleCounts,
			TotalVehicles: td.TotalVehicles,
		}
	}
	return in, nil
}
