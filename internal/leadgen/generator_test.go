package leadgen

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateLeads(t *testing.T) {
	Convey("Given a generation config", t, func() {
		ctx := context.Background()
		config := &Config{NumLeads: 200, Workers: 4}
		stats := &Stats{}

		leads, err := generateLeads(ctx, config, stats)

		Convey("Then the requested number of leads is produced", func() {
			So(err, ShouldBeNil)
			So(leads, ShouldHaveLength, 200)
			So(stats.LeadsGenerated, ShouldEqual, 200)
		})

		Convey("Then customer ids are unique", func() {
			So(err, ShouldBeNil)
			ids := make(map[string]bool, len(leads))
			for _, l := range leads {
				So(ids[l.CustomerID], ShouldBeFalse)
				ids[l.CustomerID] = true
			}
		})

		Convey("Then feature values fall in persona ranges", func() {
			So(err, ShouldBeNil)
			for _, l := range leads {
				So(l.Age, ShouldBeBetweenOrEqual, 18, 78)
				So(l.Income, ShouldBeBetweenOrEqual, 20_000, 300_000)
				So(l.Visits, ShouldBeBetweenOrEqual, 0, 30)
				So(l.EmailOpens, ShouldBeBetweenOrEqual, 0, 20)
				So(l.LastContactDays, ShouldBeBetweenOrEqual, 0, 365)
			}
		})

		Convey("When more workers than leads are requested", func() {
			small := &Config{NumLeads: 3, Workers: 16}
			leads, err := generateLeads(ctx, small, &Stats{})

			So(err, ShouldBeNil)
			So(leads, ShouldHaveLength, 3)
		})
	})
}

func TestWriteCSV(t *testing.T) {
	Convey("Given generated leads", t, func() {
		leads := []Lead{
			{CustomerID: "c1", Age: 30, Income: 55_000, Visits: 4, EmailOpens: 2, LastContactDays: 7},
			{CustomerID: "c2", Age: 45.5, Income: 120_000, Visits: 12, EmailOpens: 9, LastContactDays: 1},
		}

		Convey("When writing them as CSV", func() {
			var buf bytes.Buffer
			So(writeCSV(&buf, leads), ShouldBeNil)

			records, err := csv.NewReader(&buf).ReadAll()

			Convey("Then the output parses back with the service header", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 3)
				So(records[0], ShouldResemble,
					[]string{"Customer ID", "Age", "Income", "Visits", "EmailOpens", "LastContactDays"})
				So(records[1][0], ShouldEqual, "c1")

				age, err := strconv.ParseFloat(records[2][1], 64)
				So(err, ShouldBeNil)
				So(age, ShouldAlmostEqual, 45.5, 1e-9)
			})
		})
	})
}

func TestSaveLeadsToFile(t *testing.T) {
	Convey("Given leads and an output path", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		config := &Config{OutputFile: filepath.Join(dir, "out", "leads.csv")}
		leads := []Lead{{CustomerID: "c1", Age: 30}}

		Convey("When saving", func() {
			filename, err := saveLeadsToFile(ctx, config, leads)

			So(err, ShouldBeNil)
			So(filename, ShouldEqual, config.OutputFile)
		})

		Convey("When there is nothing to save", func() {
			_, err := saveLeadsToFile(ctx, config, nil)

			So(err, ShouldNotBeNil)
		})
	})
}
