package scanfile

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/hdf5"
)

// Metadata holds the acquisition conditions of a scan. Values carries every
// numeric entry of the metadata group; RunID and IncidentEnergy are pulled
// out because processing depends on them.
type Metadata struct {
	RunID          int64   // -1 when the scan carries no run ID
	IncidentEnergy float64 // keV, 0 when not recorded
	Values         map[string]float64
}

// readMetadata reads the scalar datasets of the metadata group. A missing or
// partially readable group is not an error: older scan files carry no
// metadata at all.
func readMetadata(file *hdf5.File) Metadata {
	meta := Metadata{RunID: -1, Values: make(map[string]float64)}

	group, err := file.OpenGroup(metadataGroup)
	if err != nil {
		return meta
	}
	defer group.Close()

	n, err := group.NumObjects()
	if err != nil {
		return meta
	}

	for i := uint(0); i < n; i++ {
		name, err := group.ObjectNameByIndex(i)
		if err != nil {
			continue
		}
		value, ok := readScalar(group, name)
		if !ok {
			continue
		}
		meta.Values[name] = value
	}

	if v, ok := meta.Values["run_id"]; ok {
		meta.RunID = int64(v)
	}
	if v, ok := meta.Values["incident_energy"]; ok {
		meta.IncidentEnergy = v
	}

	return meta
}

// readScalar reads a single-element float dataset.
func readScalar(group *hdf5.Group, name string) (float64, bool) {
	ds, err := group.OpenDataset(name)
	if err != nil {
		return 0, false
	}
	defer ds.Close()

	space := ds.Space()
	npoints := space.SimpleExtentNPoints()
	space.Close()
	if npoints != 1 {
		return 0, false
	}

	value := make([]float64, 1)
	if err := ds.Read(&value); err != nil {
		return 0, false
	}
	return value[0], true
}

// Describe formats the metadata as sorted key: value text, the way it is
// shown to users.
func (m Metadata) Describe() string {
	keys := make([]string, 0, len(m.Values))
	for k := range m.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %g\n", k, m.Values[k])
	}
	return b.String()
}
