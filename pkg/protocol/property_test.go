package protocol

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genField produces line-safe strings up to the 4-digit length limit.
func genField() gopter.Gen {
	return gen.AnyString().Map(func(s string) string {
		s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
		if len(s) > MaxFieldLen {
			s = s[:MaxFieldLen]
		}
		return s
	})
}

func TestEncodeDecodeRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(action, user, payload)) reproduces opcode and fields", prop.ForAll(
		func(idx int, user, payload string) bool {
			actions := Actions()
			action := actions[idx%len(actions)]

			var encoded []byte
			var err error
			want := []string{user}
			if action.TakesPayload() {
				encoded, err = Encode(action, user, payload)
				want = append(want, payload)
			} else {
				encoded, err = Encode(action, user)
			}
			if err != nil {
				return false
			}

			frame, err := Decode(encoded)
			if err != nil {
				return false
			}
			op, _ := OpcodeFor(action)
			return frame.Opcode == op && reflect.DeepEqual(frame.Fields, want)
		},
		gen.IntRange(0, 1000),
		genField(),
		genField(),
	))

	properties.Property("arbitrary field lists survive EncodeFrame/Decode", prop.ForAll(
		func(fields []string) bool {
			encoded, err := EncodeFrame(Frame{Opcode: Magic + "playCa", Fields: fields})
			if err != nil {
				return false
			}
			frame, err := Decode(encoded)
			if err != nil {
				return false
			}
			if len(fields) == 0 {
				return len(frame.Fields) == 0
			}
			return reflect.DeepEqual(frame.Fields, fields)
		},
		gen.SliceOf(genField()),
	))

	properties.TestingRun(t)
}
