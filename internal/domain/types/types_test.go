package types_test

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mmatheygr/lead-scoring/internal/domain/types"
)

func TestBand(t *testing.T) {
	Convey("Given the gauge bands", t, func() {
		Convey("Probabilities below 0.2 are red", func() {
			So(types.Band(0), ShouldEqual, "red")
			So(types.Band(0.19), ShouldEqual, "red")
		})

		Convey("Probabilities in [0.2, 0.7) are yellow", func() {
			So(types.Band(0.2), ShouldEqual, "yellow")
			So(types.Band(0.5), ShouldEqual, "yellow")
			So(types.Band(0.69), ShouldEqual, "yellow")
		})

		Convey("Probabilities of 0.7 and above are green", func() {
			So(types.Band(0.7), ShouldEqual, "green")
			So(types.Band(1), ShouldEqual, "green")
		})
	})
}

func TestSummaryJSON(t *testing.T) {
	Convey("Given a summary without aggregates", t, func() {
		s := types.Summary{
			BatchID:    "b-1",
			Threshold:  0.5,
			TotalLeads: 10,
		}

		Convey("When marshalled", func() {
			data, err := json.Marshal(s)

			Convey("Then the optional probability fields are omitted", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldNotContainSubstring, "avg_probability")
				So(string(data), ShouldNotContainSubstring, "min_probability")
				So(string(data), ShouldNotContainSubstring, "max_probability")
			})
		})
	})

	Convey("Given a summary with aggregates", t, func() {
		avg := 0.45
		s := types.Summary{BatchID: "b-1", AvgProbability: &avg}

		Convey("When marshalled", func() {
			data, err := json.Marshal(s)

			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"avg_probability":0.45`)
		})
	})
}
