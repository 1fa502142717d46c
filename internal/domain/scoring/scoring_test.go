package scoring

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeName(t *testing.T) {
	Convey("Given raw player names", t, func() {
		Convey("surrounding whitespace is trimmed", func() {
			So(NormalizeName("  Ada  "), ShouldEqual, "Ada")
			So(NormalizeName("\tBob\n"), ShouldEqual, "Bob")
		})

		Convey("names longer than the limit are cut", func() {
			So(NormalizeName(strings.Repeat("x", 30)), ShouldEqual, strings.Repeat("x", MaxNameLength))
			So(NormalizeName("  "+strings.Repeat("y", 25)), ShouldEqual, strings.Repeat("y", MaxNameLength))
		})

		Convey("the cut counts characters, not bytes", func() {
			name := strings.Repeat("é", 30)
			So(NormalizeName(name), ShouldEqual, strings.Repeat("é", MaxNameLength))
		})

		Convey("whitespace exposed by the cut is trimmed", func() {
			raw := strings.Repeat("a", 23) + "   tail"
			So(NormalizeName(raw), ShouldEqual, strings.Repeat("a", 23))
		})

		Convey("missing and falsy values normalize to empty", func() {
			So(NormalizeName(nil), ShouldEqual, "")
			So(NormalizeName(""), ShouldEqual, "")
			So(NormalizeName("   "), ShouldEqual, "")
			So(NormalizeName(false), ShouldEqual, "")
			So(NormalizeName(json.Number("0")), ShouldEqual, "")
		})

		Convey("other scalars are coerced to text", func() {
			So(NormalizeName(true), ShouldEqual, "true")
			So(NormalizeName(json.Number("42")), ShouldEqual, "42")
			So(NormalizeName(json.Number("4.50")), ShouldEqual, "4.5")
			So(NormalizeName(7), ShouldEqual, "7")
		})

		Convey("containers are not names", func() {
			So(NormalizeName([]any{"Ada"}), ShouldEqual, "")
			So(NormalizeName(map[string]any{"n": "Ada"}), ShouldEqual, "")
		})

		Convey("normalizing twice changes nothing", func() {
			faker := gofakeit.New(7)
			for range 200 {
				words := make([]string, faker.Number(1, 8))
				for i := range words {
					words[i] = faker.Word()
				}
				raw := faker.Name() + " " + strings.Join(words, " ")
				if faker.Bool() {
					raw = "  " + raw + " \t"
				}
				once := NormalizeName(raw)
				So(NormalizeName(once), ShouldEqual, once)
				So(len([]rune(once)), ShouldBeLessThanOrEqualTo, MaxNameLength)
			}
		})
	})
}

func TestCoerceScore(t *testing.T) {
	Convey("Given raw scores", t, func() {
		Convey("integers pass through", func() {
			v, err := CoerceScore(json.Number("100"))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 100)

			v, err = CoerceScore(int64(9000))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 9000)
		})

		Convey("fractions are floored", func() {
			v, err := CoerceScore(json.Number("12.9"))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 12)

			v, err = CoerceScore(0.4)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0)
		})

		Convey("numeric strings are parsed", func() {
			v, err := CoerceScore(" 250 ")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 250)

			v, err = CoerceScore("1e3")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 1000)
		})

		Convey("numeric strings follow loose number syntax", func() {
			cases := map[string]int64{
				"0x10":   16,
				"0X1f":   31,
				"0o17":   15,
				"0b101":  5,
				" 1e3 ":  1000,
				"+7":     7,
				"5.":     5,
				".9":     0,
				"\t42\n": 42,
			}
			for in, want := range cases {
				v, err := CoerceScore(in)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, want)
			}
		})

		Convey("missing, null, false and blank count as zero", func() {
			for _, raw := range []any{nil, false, "", "   ", json.Number("0"), json.Number("-0")} {
				v, err := CoerceScore(raw)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0)
			}
		})

		Convey("true counts as one", func() {
			v, err := CoerceScore(true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 1)
		})

		Convey("tiny values that underflow are zero", func() {
			v, err := CoerceScore(json.Number("1e-400"))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0)
		})

		Convey("invalid values are rejected", func() {
			for _, raw := range []any{
				"abc", "12abc", "NaN", "Infinity", "inf", "1_000", "0x", "-0x10", "0x1g", "1e", ".",
				json.Number("-5"), json.Number("-0.5"), json.Number("1e400"),
				json.Number("9223372036854775808"),
				[]any{1}, map[string]any{},
			} {
				_, err := CoerceScore(raw)
				So(err, ShouldEqual, ErrScoreInvalid)
			}
		})

		Convey("the largest accepted value stays below the int64 ceiling", func() {
			v, err := CoerceScore(json.Number("9223372036854774784"))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(9223372036854774784))
		})
	})
}

func TestLimits(t *testing.T) {
	Convey("Given a requested leaderboard size", t, func() {
		Convey("ParseLimit reads the query value", func() {
			So(ParseLimit(""), ShouldEqual, 0)
			So(ParseLimit("abc"), ShouldEqual, 0)
			So(ParseLimit("5"), ShouldEqual, 5)
			So(ParseLimit("7.9"), ShouldEqual, 7)
			So(ParseLimit("-3"), ShouldEqual, -3)
			So(ParseLimit("1e12"), ShouldBeGreaterThan, MaxLimit)
			So(ParseLimit("Infinity"), ShouldBeGreaterThan, MaxLimit)
			So(ParseLimit("NaN"), ShouldEqual, 0)
			So(ParseLimit("0x14"), ShouldEqual, 20)
			So(ParseLimit("2_0"), ShouldEqual, 0)
			So(ParseLimit("-Infinity"), ShouldBeLessThan, 1)
		})

		Convey("ClampLimit keeps the size in range", func() {
			So(ClampLimit(0, DefaultLimit, MaxLimit), ShouldEqual, 10)
			So(ClampLimit(1000, DefaultLimit, MaxLimit), ShouldEqual, 50)
			So(ClampLimit(-3, DefaultLimit, MaxLimit), ShouldEqual, 1)
			So(ClampLimit(5, DefaultLimit, MaxLimit), ShouldEqual, 5)
			So(ClampLimit(50, DefaultLimit, MaxLimit), ShouldEqual, 50)
		})

		Convey("ClampLimit repairs an inconsistent configuration", func() {
			So(ClampLimit(0, 0, 0), ShouldEqual, DefaultLimit)
			So(ClampLimit(0, 80, 20), ShouldEqual, DefaultLimit)
			So(ClampLimit(0, 80, 5), ShouldEqual, 5)
			So(ClampLimit(100, 3, 20), ShouldEqual, 20)
		})
	})
}
