package ingest_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/liftprogress/internal/adapters/ingest"
	. "github.com/smartystreets/goconvey/convey"
)

const sample = `Name,Sex,Event,Equipment,Age,AgeClass,BodyweightKg,WeightClassKg,Best3SquatKg,Best3BenchKg,Best3DeadliftKg,TotalKg,Place,Wilks,Tested,Country,State,Federation,ParentFederation,Date,MeetCountry,MeetState,MeetName
Sam Lee,M,SBD,Raw,27.5,24-34,82.4,83,200,130,240,570,1,390.1,Yes,Australia,NSW,APU,IPF,2018-01-13,Australia,NSW,State Titles
Ann Roe,F,SBD,Raw,,,61,63,bad,70,150,,DQ,,Yes,,,APU,IPF,not-a-date,Australia,,Club Open
`

func zipOf(t *testing.T, files map[string]string, order []string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, files[name]); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalizeColumn(t *testing.T) {
	Convey("Given source headers", t, func() {
		Convey("Then CamelCase becomes snake_case", func() {
			So(ingest.NormalizeColumn("MeetName"), ShouldEqual, "meet_name")
			So(ingest.NormalizeColumn("AgeClass"), ShouldEqual, "age_class")
			So(ingest.NormalizeColumn("WeightClassKg"), ShouldEqual, "weight_class_kg")
			So(ingest.NormalizeColumn("Name"), ShouldEqual, "name")
		})

		Convey("Then lift and weight columns are renamed", func() {
			So(ingest.NormalizeColumn("Best3SquatKg"), ShouldEqual, "squat")
			So(ingest.NormalizeColumn("Best3DeadliftKg"), ShouldEqual, "deadlift")
			So(ingest.NormalizeColumn("TotalKg"), ShouldEqual, "total")
			So(ingest.NormalizeColumn("BodyweightKg"), ShouldEqual, "bodyweight")
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given a csv export", t, func() {
		Convey("When decoding", func() {
			recs, err := ingest.Decode(strings.NewReader(sample))
			So(err, ShouldBeNil)
			So(len(recs), ShouldEqual, 2)

			Convey("Then typed fields are parsed", func() {
				r := recs[0]
				So(r.Name, ShouldEqual, "Sam Lee")
				So(*r.Age, ShouldEqual, 27.5)
				So(*r.Bodyweight, ShouldEqual, 82.4)
				So(*r.Squat, ShouldEqual, 200)
				So(*r.Total, ShouldEqual, 570)
				So(r.Date.Equal(time.Date(2018, 1, 13, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(r.MeetName, ShouldEqual, "State Titles")
				So(r.ParentFederation, ShouldEqual, "IPF")
				So(r.Place, ShouldEqual, "1")
			})

			Convey("Then bad values become null and the row is kept", func() {
				r := recs[1]
				So(r.Age, ShouldBeNil)
				So(r.Squat, ShouldBeNil)
				So(r.Total, ShouldBeNil)
				So(r.Date.IsZero(), ShouldBeTrue)
				So(r.Place, ShouldEqual, "DQ")
			})
		})

		Convey("When required columns are missing", func() {
			_, err := ingest.Decode(strings.NewReader("Name,Sex\nSam,M\n"))

			Convey("Then the missing columns are named", func() {
				So(err, ShouldWrap, ingest.ErrMissingColumns)
				So(err.Error(), ShouldContainSubstring, "meet_name")
			})
		})
	})
}

func TestFetcher(t *testing.T) {
	Convey("Given an archive server", t, func() {
		archive := zipOf(t, map[string]string{
			"README.txt":               "readme",
			"opl/openpowerlifting.csv": sample,
			"opl/other.csv":            "x",
		}, []string{"README.txt", "opl/openpowerlifting.csv", "opl/other.csv"})

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/latest.zip" {
				http.Error(w, "gone", http.StatusNotFound)
				return
			}
			_, _ = w.Write(archive)
		}))
		defer srv.Close()

		ctx := context.Background()
		f := ingest.NewFetcher(ingest.WithTimeout(5 * time.Second))
		dst := filepath.Join(t.TempDir(), "extract", "latest.zip")

		Convey("When downloading and extracting", func() {
			n, err := f.Download(ctx, srv.URL+"/latest.zip", dst)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, int64(len(archive)))

			a, err := ingest.OpenArchive(dst)
			So(err, ShouldBeNil)
			defer a.Close()

			name, rc, err := a.ExtractCSV()
			So(err, ShouldBeNil)
			defer rc.Close()

			Convey("Then the first csv is returned", func() {
				So(name, ShouldEqual, "opl/openpowerlifting.csv")
				recs, err := ingest.Decode(rc)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 2)
			})
		})

		Convey("When the server rejects the request", func() {
			_, err := f.Download(ctx, srv.URL+"/missing.zip", dst)

			Convey("Then a download error is returned", func() {
				So(err, ShouldWrap, ingest.ErrDownload)
				So(err.Error(), ShouldContainSubstring, "404")
			})
		})

		Convey("When the archive holds no csv", func() {
			path := filepath.Join(t.TempDir(), "empty.zip")
			So(os.WriteFile(path, zipOf(t, map[string]string{"a.txt": "a"}, []string{"a.txt"}), 0o600), ShouldBeNil)
			a, err := ingest.OpenArchive(path)
			So(err, ShouldBeNil)
			defer a.Close()

			_, _, err = a.ExtractCSV()

			Convey("Then ErrNoCSV is returned", func() {
				So(err, ShouldEqual, ingest.ErrNoCSV)
			})
		})
	})
}
