package csvio_test

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mmatheygr/lead-scoring/internal/domain/csvio"
)

var featureColumns = []string{"Age", "Income", "Visits"}

func TestReader(t *testing.T) {
	Convey("Given a reader with a fixed feature schema", t, func() {
		r := csvio.NewReader(featureColumns)

		Convey("When parsing a well-formed CSV", func() {
			src := strings.NewReader(
				"Customer ID,Age,Income,Visits\n" +
					"c-1,34,72000,12\n" +
					"c-2,51,48000,3\n")
			leads, err := r.Read(src)

			Convey("Then every row becomes a lead", func() {
				So(err, ShouldBeNil)
				So(leads, ShouldHaveLength, 2)
				So(leads[0].CustomerID, ShouldEqual, "c-1")
				So(leads[0].Features["Age"], ShouldEqual, 34)
				So(leads[0].Features["Income"], ShouldEqual, 72000)
				So(leads[1].CustomerID, ShouldEqual, "c-2")
				So(leads[1].Features["Visits"], ShouldEqual, 3)
			})
		})

		Convey("When the id header spelling varies", func() {
			for _, header := range []string{"Customer ID", "CustomerID", "customer_id", "Lead ID", "ID"} {
				src := strings.NewReader(header + ",Age,Income,Visits\nc-1,34,72000,12\n")
				leads, err := r.Read(src)

				So(err, ShouldBeNil)
				So(leads, ShouldHaveLength, 1)
				So(leads[0].CustomerID, ShouldEqual, "c-1")
			}
		})

		Convey("When feature header spelling varies", func() {
			src := strings.NewReader("customer_id,age,INCOME,Visits\nc-1,34,72000,12\n")
			leads, err := r.Read(src)

			Convey("Then matching is case and separator insensitive", func() {
				So(err, ShouldBeNil)
				So(leads[0].Features["Age"], ShouldEqual, 34)
				So(leads[0].Features["Income"], ShouldEqual, 72000)
			})
		})

		Convey("When the file is empty", func() {
			_, err := r.Read(strings.NewReader(""))

			So(err, ShouldEqual, csvio.ErrEmptyFile)
		})

		Convey("When the file has a header but no rows", func() {
			_, err := r.Read(strings.NewReader("Customer ID,Age,Income,Visits\n"))

			So(err, ShouldEqual, csvio.ErrEmptyFile)
		})

		Convey("When the id column is missing", func() {
			_, err := r.Read(strings.NewReader("Age,Income,Visits\n34,72000,12\n"))

			So(err, ShouldWrap, csvio.ErrMissingColumn)
		})

		Convey("When a feature column is missing", func() {
			_, err := r.Read(strings.NewReader("Customer ID,Age,Income\nc-1,34,72000\n"))

			So(err, ShouldWrap, csvio.ErrMissingColumn)
		})

		Convey("When two identifier columns are present", func() {
			_, err := r.Read(strings.NewReader("Customer ID,Lead ID,Age,Income,Visits\nc-1,l-1,34,72000,12\n"))

			So(err, ShouldWrap, csvio.ErrMalformedCSV)
		})

		Convey("When a customer id repeats", func() {
			src := strings.NewReader(
				"Customer ID,Age,Income,Visits\n" +
					"c-1,34,72000,12\n" +
					"c-1,51,48000,3\n")
			_, err := r.Read(src)

			So(err, ShouldWrap, csvio.ErrInvalidLead)
		})

		Convey("When a customer id is empty", func() {
			_, err := r.Read(strings.NewReader("Customer ID,Age,Income,Visits\n ,34,72000,12\n"))

			So(err, ShouldWrap, csvio.ErrInvalidLead)
		})

		Convey("When a feature value is not numeric", func() {
			_, err := r.Read(strings.NewReader("Customer ID,Age,Income,Visits\nc-1,unknown,72000,12\n"))

			So(err, ShouldWrap, csvio.ErrInvalidLead)
		})

		Convey("When a row has a different field count", func() {
			_, err := r.Read(strings.NewReader("Customer ID,Age,Income,Visits\nc-1,34,72000\n"))

			So(err, ShouldWrap, csvio.ErrMalformedCSV)
		})
	})

	Convey("Given a reader with a row cap", t, func() {
		r := csvio.NewReader(featureColumns, csvio.WithMaxRows(2))

		Convey("When the upload exceeds the cap", func() {
			src := strings.NewReader(
				"Customer ID,Age,Income,Visits\n" +
					"c-1,34,72000,12\n" +
					"c-2,51,48000,3\n" +
					"c-3,29,55000,7\n")
			_, err := r.Read(src)

			So(err, ShouldWrap, csvio.ErrTooManyRows)
		})
	})
}
