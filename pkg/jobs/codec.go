package jobs

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Spool records are CBOR with deterministic encoding. Decoding any-typed
// values picks map[string]any so job arguments come back in the shape
// encoding/json produces.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("jobs: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("jobs: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeJob(job Job) ([]byte, error) {
	return encMode.Marshal(job)
}

func decodeJob(data []byte) (Job, error) {
	var job Job
	err := decMode.Unmarshal(data, &job)
	return job, err
}
