package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go1090/trackserver/internal/track"
	"github.com/go1090/trackserver/internal/trace"
)

// stateLayoutVersion stands in for the original C implementation's
// sizeof(struct aircraft): a version tag that changes whenever the
// persisted shape of Aircraft/Entry changes, so a restart never
// mis-reads a blob written by an incompatible build.
const stateLayoutVersion uint32 = 1

// AircraftState is the payload persisted by WriteInternalState: the
// aircraft record followed by its full trace array.
type AircraftState struct {
	Aircraft track.Aircraft
	Trace    []trace.Entry
}

// stateFilePath returns
// globe_history_dir/internal_state/<bucket>/<addr>.
func stateFilePath(globeHistoryDir string, addr uint32) string {
	return filepath.Join(globeHistoryDir, "internal_state", bucketDir(addr), fmt.Sprintf("%06x", addr))
}

// WriteInternalState persists one aircraft's full state, prefixed with
// a layout version and length so ReadInternalState can refuse to load
// a blob from an incompatible build instead of misinterpreting it.
func WriteInternalState(globeHistoryDir string, addr uint32, state AircraftState) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(state); err != nil {
		return fmt.Errorf("snapshot: encode internal state for %06x: %w", addr, err)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, stateLayoutVersion)
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())

	return writeAtomic(stateFilePath(globeHistoryDir, addr), out.Bytes())
}

// ReadInternalState loads a previously-written blob, returning
// ok=false (not an error) if its layout version doesn't match the
// running build's, so it is only ever re-read when the on-disk layout
// is known compatible.
func ReadInternalState(globeHistoryDir string, addr uint32) (state AircraftState, ok bool, err error) {
	raw, err := os.ReadFile(stateFilePath(globeHistoryDir, addr))
	if err != nil {
		if os.IsNotExist(err) {
			return AircraftState{}, false, nil
		}
		return AircraftState{}, false, fmt.Errorf("snapshot: read internal state for %06x: %w", addr, err)
	}
	if len(raw) < 8 {
		return AircraftState{}, false, nil
	}

	version := binary.LittleEndian.Uint32(raw[0:4])
	length := binary.LittleEndian.Uint32(raw[4:8])
	if version != stateLayoutVersion {
		return AircraftState{}, false, nil
	}
	if int(length) > len(raw)-8 {
		return AircraftState{}, false, fmt.Errorf("snapshot: internal state for %06x: truncated", addr)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw[8 : 8+length])).Decode(&state); err != nil {
		return AircraftState{}, false, fmt.Errorf("snapshot: decode internal state for %06x: %w", addr, err)
	}
	return state, true, nil
}
