package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestFileSourceLoad(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	src := FileSource{
		TripsPath:      writeFile(t, dir, "trips.json", `[{"passenger_id": 1, "route": [[0,0],[1,1]], "timestamp": [0, 10]}]`),
		PassengersPath: writeFile(t, dir, "passengers.json", `[{"passenger_id": 1, "timestamp": [0], "location": [1,1]}]`),
	}
	ds, err := src.Load(context.Background())
	is.NoErr(err)
	is.Equal(len(ds.Trips), 1)
	is.Equal(len(ds.Passengers), 1)
	is.Equal(string(ds.Passengers[0].PassengerID), "1")

	again, err := src.Load(context.Background())
	is.NoErr(err)
	is.Equal(ds.Fingerprint(), again.Fingerprint())
}

func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "ok.json", `[]`)
	bad := writeFile(t, dir, "bad.json", `{`)

	tests := []struct {
		name string
		src  FileSource
	}{
		{name: "missing trips file", src: FileSource{TripsPath: filepath.Join(dir, "nope.json"), PassengersPath: good}},
		{name: "missing passengers file", src: FileSource{TripsPath: good, PassengersPath: filepath.Join(dir, "nope.json")}},
		{name: "broken trips json", src: FileSource{TripsPath: bad, PassengersPath: good}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			_, err := tt.src.Load(context.Background())
			is.True(err != nil)
		})
	}
}
