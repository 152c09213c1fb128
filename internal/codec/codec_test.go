package codec_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/ctfscores/internal/codec"
	"github.com/okian/ctfscores/internal/domain/model"
	"github.com/okian/ctfscores/internal/sample"
	"github.com/okian/ctfscores/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var allFormats = []codec.Format{codec.FormatJSON, codec.FormatYAML, codec.FormatCBOR}

func TestEncodeChallenge(t *testing.T) {
	Convey("Given a fresh challenge", t, func() {
		c := model.NewChallenge("rev1")

		Convey("When marshalling it as JSON", func() {
			data, err := codec.New().Marshal(c)

			Convey("Then it should be a tagged container with default fields", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, `{"__Challenge__":{"name":"rev1","points":0,"teammate":""}}`)
			})

			Convey("And decoding it should give back an equal challenge", func() {
				back, err := codec.New().UnmarshalChallenge(data)
				So(err, ShouldBeNil)
				So(back, ShouldResemble, c)
			})
		})
	})
}

func TestRoundTripEvent(t *testing.T) {
	for _, format := range allFormats {
		Convey("Given the NoobCTF event in "+string(format), t, func() {
			cd := codec.New(codec.WithFormat(format))
			e := sample.NoobCTF()

			Convey("When it round-trips", func() {
				data, err := cd.Marshal(e)
				So(err, ShouldBeNil)
				back, err := cd.UnmarshalEvent(data)
				So(err, ShouldBeNil)

				Convey("Then name, date and both challenges should survive", func() {
					So(back.Name(), ShouldEqual, "NoobCTF")
					So(back.Date, ShouldResemble, model.NewDate(2021, time.January, 10))
					So(back.Challenges, ShouldHaveLength, 2)
					So(back, ShouldResemble, e)
				})
			})
		})

		Convey("Given an event with no challenges in "+string(format), t, func() {
			cd := codec.New(codec.WithFormat(format))
			e := model.NewEvent("EmptyCTF", model.NewDate(2020, time.February, 29))

			Convey("When it round-trips", func() {
				data, err := cd.Marshal(e)
				So(err, ShouldBeNil)
				back, err := cd.UnmarshalEvent(data)

				Convey("Then the challenges should be an empty mapping, not an error", func() {
					So(err, ShouldBeNil)
					So(back.Challenges, ShouldNotBeNil)
					So(back.Challenges, ShouldBeEmpty)
					So(back.Date.String(), ShouldEqual, "2020-02-29")
				})
			})
		})
	}
}

func TestRoundTripScores(t *testing.T) {
	for _, format := range allFormats {
		Convey("Given demo scores in "+string(format), t, func() {
			cd := codec.New(codec.WithFormat(format))
			s := sample.Demo(model.NewDate(2026, time.October, 17))

			Convey("When they round-trip", func() {
				data, err := cd.Marshal(s)
				So(err, ShouldBeNil)
				back, err := cd.UnmarshalScores(data)
				So(err, ShouldBeNil)

				Convey("Then the events should be rebuilt", func() {
					So(back.EventNames(), ShouldResemble, []string{"LamerCTF", "NoobCTF"})
					So(back.Events["NoobCTF"], ShouldResemble, s.Events["NoobCTF"])
					So(back.Events["LamerCTF"], ShouldResemble, s.Events["LamerCTF"])
				})

				Convey("And active should share the rebuilt entry, not copy it", func() {
					active, ok := back.Active()
					So(ok, ShouldBeTrue)
					So(active, ShouldPointTo, back.Events["LamerCTF"])
				})
			})
		})

		Convey("Given scores without an active event in "+string(format), t, func() {
			cd := codec.New(codec.WithFormat(format))
			s := model.NewScores()
			s.Events["NoobCTF"] = sample.NoobCTF()

			Convey("When they round-trip", func() {
				data, err := cd.Marshal(s)
				So(err, ShouldBeNil)
				back, err := cd.UnmarshalScores(data)

				Convey("Then active should stay absent", func() {
					So(err, ShouldBeNil)
					_, ok := back.Active()
					So(ok, ShouldBeFalse)
					So(back, ShouldResemble, s)
				})
			})
		})

		Convey("Given generated scores in "+string(format), t, func() {
			cd := codec.New(codec.WithFormat(format))
			s, err := sample.NewGenerator(sample.WithSeed(7), sample.WithEvents(5), sample.WithChallenges(8)).Scores(context.Background())
			So(err, ShouldBeNil)

			Convey("Then they should round-trip exactly", func() {
				data, err := cd.Marshal(s)
				So(err, ShouldBeNil)
				back, err := cd.UnmarshalScores(data)
				So(err, ShouldBeNil)
				So(back, ShouldResemble, s)

				active, _ := back.Active()
				name, _ := back.ActiveName()
				So(active, ShouldPointTo, back.Events[name])
			})
		})
	}
}

func TestScoresWireShape(t *testing.T) {
	Convey("Given scores with no active event", t, func() {
		data, err := codec.New().Marshal(model.NewScores())

		Convey("Then active should be the empty-string sentinel", func() {
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, `{"__Scores__":{"active":"","events":{}}}`)
		})
	})

	Convey("Given scores whose active event is stored under the empty key", t, func() {
		s := model.NewScores()
		s.NewEvent(model.NewEvent("", model.NewDate(2021, time.January, 10)))

		Convey("When marshalling them", func() {
			_, err := codec.New().Marshal(s)

			Convey("Then encoding should fail instead of writing the no-active sentinel", func() {
				So(errors.Is(err, model.ErrEmptyName), ShouldBeTrue)
			})
		})
	})

	Convey("Given demo scores", t, func() {
		data, err := codec.New().Marshal(sample.Demo(model.NewDate(2021, time.March, 1)))
		So(err, ShouldBeNil)

		var doc map[string]map[string]any
		So(json.Unmarshal(data, &doc), ShouldBeNil)

		Convey("Then active should be written as a name, not a nested event", func() {
			So(doc["__Scores__"]["active"], ShouldEqual, "LamerCTF")
			So(strings.Count(string(data), `"__Event__"`), ShouldEqual, 2)
		})
	})
}

func TestDecodeHooks(t *testing.T) {
	Convey("Given the per-kind hooks", t, func() {
		untagged := map[string]any{"name": "rev1"}

		Convey("When a mapping carries no tag", func() {
			Convey("Then every hook should pass it through unchanged", func() {
				for _, hook := range []codec.Hook{codec.DecodeChallenge, codec.DecodeEvent, codec.DecodeScores, codec.DecodeAny} {
					out, err := hook(untagged)
					So(err, ShouldBeNil)
					So(out, ShouldResemble, untagged)
				}
			})
		})

		Convey("When a mapping carries another kind's tag", func() {
			m := map[string]any{"__Event__": map[string]any{}}
			out, err := codec.DecodeChallenge(m)

			Convey("Then the challenge hook should ignore it", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, m)
			})
		})

		Convey("When decoding an event with the challenge hook", func() {
			data, err := codec.New().Marshal(sample.NoobCTF())
			So(err, ShouldBeNil)
			out, err := codec.New().Unmarshal(data, codec.DecodeChallenge)

			Convey("Then only the nested challenges should become entities", func() {
				So(err, ShouldBeNil)
				outer, ok := out.(map[string]any)
				So(ok, ShouldBeTrue)
				body := outer["__Event__"].(map[string]any)
				challenges := body["challenges"].(map[string]any)
				So(challenges["pwn1"], ShouldHaveSameTypeAs, &model.Challenge{})
			})
		})

		Convey("When decoding scores with the catch-all hook", func() {
			s := sample.Demo(model.NewDate(2021, time.March, 1))
			data, err := codec.New().Marshal(s)
			So(err, ShouldBeNil)
			out, err := codec.New().Unmarshal(data, codec.DecodeAny)

			Convey("Then the already-decoded nested entities should be reused", func() {
				So(err, ShouldBeNil)
				back, ok := out.(*model.Scores)
				So(ok, ShouldBeTrue)
				So(back, ShouldResemble, s)
			})
		})

		Convey("When decoding without a hook", func() {
			out, err := codec.New().Unmarshal([]byte(`{"__Challenge__":{"name":"a","points":1,"teammate":""}}`), nil)

			Convey("Then the generic tree should be returned", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveSameTypeAs, map[string]any{})
			})
		})
	})
}

func TestEnvelope(t *testing.T) {
	Convey("Given tagged mappings", t, func() {
		Convey("When a single known tag is present", func() {
			env, ok, err := codec.ParseEnvelope(map[string]any{
				"__Event__": map[string]any{"name": "x"},
			})

			Convey("Then the envelope should name the kind", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(env.Kind, ShouldEqual, codec.KindEvent)
				So(env.Body, ShouldContainKey, "name")
			})
		})

		Convey("When two tags are present", func() {
			_, _, err := codec.ParseEnvelope(map[string]any{
				"__Event__":     map[string]any{},
				"__Challenge__": map[string]any{},
			})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, codec.ErrMalformedField), ShouldBeTrue)
			})
		})

		Convey("When the tag does not hold a mapping", func() {
			_, _, err := codec.ParseEnvelope(map[string]any{"__Scores__": "nope"})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, codec.ErrMalformedField), ShouldBeTrue)
			})
		})

		Convey("When the kind is unknown", func() {
			_, err := codec.DecodeEntity(codec.Envelope{Kind: codec.Kind(99)})

			Convey("Then decoding should fail", func() {
				So(errors.Is(err, codec.ErrUnexpectedKind), ShouldBeTrue)
			})
		})

		Convey("Then kinds should render their tags", func() {
			So(codec.KindChallenge.Tag(), ShouldEqual, "__Challenge__")
			So(codec.KindEvent.Tag(), ShouldEqual, "__Event__")
			So(codec.KindScores.Tag(), ShouldEqual, "__Scores__")
			So(codec.Kinds(), ShouldHaveLength, 3)
		})
	})
}

func TestDefault(t *testing.T) {
	Convey("Given the encoding dispatcher", t, func() {
		Convey("When given a calendar date", func() {
			out, err := codec.Default(model.NewDate(2021, time.January, 10))

			Convey("Then it should produce an ISO-8601 date", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "2021-01-10")
			})
		})

		Convey("When given a timestamp", func() {
			out, err := codec.Default(time.Date(2021, time.January, 10, 8, 30, 0, 0, time.UTC))

			Convey("Then it should produce an ISO-8601 timestamp", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "2021-01-10T08:30:00Z")
			})
		})

		Convey("When given entity values rather than pointers", func() {
			out, err := codec.Default(*model.NewChallenge("rev1"))

			Convey("Then it should encode them the same way", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainKey, "__Challenge__")
			})
		})

		Convey("When given an unsupported value", func() {
			for _, v := range []any{struct{}{}, make(chan int), (*model.Event)(nil), []string{"a"}} {
				_, err := codec.Default(v)
				So(errors.Is(err, codec.ErrUnsupportedType), ShouldBeTrue)
			}
		})

		Convey("When marshalling a plain mapping holding entities", func() {
			data, err := codec.New().Marshal(map[string]any{
				"when":  model.NewDate(2021, time.January, 10),
				"items": []any{model.NewChallenge("a"), 3, nil},
			})

			Convey("Then natives should pass through and entities be tagged", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual,
					`{"items":[{"__Challenge__":{"name":"a","points":0,"teammate":""}},3,null],"when":"2021-01-10"}`)
			})
		})

		Convey("When marshalling something with no encoding", func() {
			_, err := codec.New().Marshal(map[string]any{"bad": struct{ X int }{1}})

			Convey("Then it should fail with UnsupportedType", func() {
				So(errors.Is(err, codec.ErrUnsupportedType), ShouldBeTrue)
			})
		})

		Convey("When marshalling an invalid entity", func() {
			_, err := codec.New().Marshal(model.NewChallenge(""))

			Convey("Then the invariant violation should surface", func() {
				So(errors.Is(err, model.ErrEmptyName), ShouldBeTrue)
			})
		})
	})
}

func TestDecodeErrors(t *testing.T) {
	Convey("Given malformed documents", t, func() {
		cd := codec.New()

		Convey("When the event date is not ISO-8601", func() {
			_, err := cd.UnmarshalEvent([]byte(`{"__Event__":{"name":"x","date":"10/01/2021","challenges":{}}}`))

			Convey("Then it should fail with MalformedDate", func() {
				So(errors.Is(err, codec.ErrMalformedDate), ShouldBeTrue)
			})
		})

		Convey("When the date is not a string", func() {
			_, err := cd.UnmarshalEvent([]byte(`{"__Event__":{"name":"x","date":20210110,"challenges":{}}}`))

			Convey("Then it should fail with MalformedDate", func() {
				So(errors.Is(err, codec.ErrMalformedDate), ShouldBeTrue)
			})
		})

		Convey("When active names a missing event", func() {
			_, err := cd.UnmarshalScores([]byte(`{"__Scores__":{"active":"GhostCTF","events":{}}}`))

			Convey("Then it should fail with ActiveNotFound and not substitute anything", func() {
				So(errors.Is(err, codec.ErrActiveNotFound), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "GhostCTF")
			})
		})

		Convey("When a field is missing or mistyped", func() {
			docs := []string{
				`{"__Challenge__":{"name":"a","points":1}}`,
				`{"__Challenge__":{"name":"a","points":"1","teammate":""}}`,
				`{"__Challenge__":{"name":"a","points":1.5,"teammate":""}}`,
				`{"__Challenge__":{"name":7,"points":1,"teammate":""}}`,
				`{"__Challenge__":"rev1"}`,
			}
			for _, doc := range docs {
				_, err := cd.UnmarshalChallenge([]byte(doc))
				So(errors.Is(err, codec.ErrMalformedField), ShouldBeTrue)
			}
		})

		Convey("When points do not fit an int", func() {
			_, err := cd.UnmarshalChallenge([]byte(`{"__Challenge__":{"name":"a","points":9223372036854775808,"teammate":""}}`))
			So(errors.Is(err, codec.ErrMalformedField), ShouldBeTrue)

			yml := codec.New(codec.WithFormat(codec.FormatYAML))
			for _, points := range []string{"1.0e+30", "-1.0e+30", "9.3e+18"} {
				_, err := yml.UnmarshalChallenge([]byte("__Challenge__:\n  name: a\n  points: " + points + "\n  teammate: \"\"\n"))
				So(errors.Is(err, codec.ErrMalformedField), ShouldBeTrue)
			}
		})

		Convey("When points are an integral float", func() {
			yml := codec.New(codec.WithFormat(codec.FormatYAML))
			c, err := yml.UnmarshalChallenge([]byte("__Challenge__:\n  name: a\n  points: 4.0e+2\n  teammate: \"\"\n"))

			Convey("Then they should be accepted", func() {
				So(err, ShouldBeNil)
				So(c.Points, ShouldEqual, 400)
			})
		})

		Convey("When a nested challenge is untagged", func() {
			_, err := cd.UnmarshalEvent([]byte(`{"__Event__":{"name":"x","date":"2021-01-10","challenges":{"a":{"name":"a"}}}}`))

			Convey("Then it should fail rather than keep a raw mapping", func() {
				So(errors.Is(err, codec.ErrUnexpectedKind), ShouldBeTrue)
			})
		})

		Convey("When a challenge name is empty", func() {
			_, err := cd.UnmarshalChallenge([]byte(`{"__Challenge__":{"name":"","points":0,"teammate":""}}`))

			Convey("Then the model invariant should fail", func() {
				So(errors.Is(err, model.ErrEmptyName), ShouldBeTrue)
			})
		})

		Convey("When the document is another kind", func() {
			data, err := cd.Marshal(model.NewChallenge("rev1"))
			So(err, ShouldBeNil)
			_, err = cd.UnmarshalScores(data)

			Convey("Then the typed helper should report the mismatch", func() {
				So(errors.Is(err, codec.ErrUnexpectedKind), ShouldBeTrue)
			})
		})

		Convey("When the text is not valid JSON", func() {
			for _, doc := range []string{`{"__Challenge__":`, `{} {}`, ``} {
				_, err := cd.Unmarshal([]byte(doc), codec.DecodeAny)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestCodecLogging(t *testing.T) {
	Convey("Given a codec with a debug logger", t, func() {
		var buf bytes.Buffer
		So(logger.InitWithWriter(&buf), ShouldBeNil)
		So(logger.SetLevelString("debug"), ShouldBeNil)
		Reset(func() { _ = logger.SetLevelString("info") })

		cd := codec.New(codec.WithLogger(logger.Named("codec")))

		Convey("When a decode fails", func() {
			_, err := cd.UnmarshalScores([]byte(`{"__Scores__":{"active":"Ghost","events":{}}}`))

			Convey("Then the failure should be logged with its error type", func() {
				So(err, ShouldNotBeNil)
				So(buf.String(), ShouldContainSubstring, "decode failed")
				So(buf.String(), ShouldContainSubstring, "error_type=active_not_found")
				So(buf.String(), ShouldContainSubstring, "logger=codec")
			})
		})

		Convey("When an encode fails", func() {
			_, err := cd.Marshal(struct{}{})

			Convey("Then the failure should be logged", func() {
				So(err, ShouldNotBeNil)
				So(buf.String(), ShouldContainSubstring, "encode failed")
				So(buf.String(), ShouldContainSubstring, "error_type=unsupported_type")
			})
		})

		Convey("When a call succeeds", func() {
			_, err := cd.Marshal(model.NewChallenge("rev1"))

			Convey("Then nothing should be logged", func() {
				So(err, ShouldBeNil)
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a codec without a logger", t, func() {
		Convey("Then failures should still be returned", func() {
			_, err := codec.New(codec.WithLogger(nil)).Marshal(struct{}{})
			So(errors.Is(err, codec.ErrUnsupportedType), ShouldBeTrue)
		})
	})
}

func TestJSONC(t *testing.T) {
	Convey("Given a hand-written document with comments and trailing commas", t, func() {
		doc := `{
	// a single challenge
	"__Challenge__": {
		"name": "pwn1",
		"points": 498, /* first blood */
		"teammate": "grmmpff",
	},
}`

		Convey("When decoding it", func() {
			c, err := codec.New().UnmarshalChallenge([]byte(doc))

			Convey("Then it should load like plain JSON", func() {
				So(err, ShouldBeNil)
				So(c.Name(), ShouldEqual, "pwn1")
				So(c.Points, ShouldEqual, 498)
				So(c.Teammate, ShouldEqual, "grmmpff")
			})
		})
	})
}

func TestFormats(t *testing.T) {
	Convey("Given format names", t, func() {
		Convey("Then known names should parse case-insensitively", func() {
			f, err := codec.ParseFormat(" YAML ")
			So(err, ShouldBeNil)
			So(f, ShouldEqual, codec.FormatYAML)
		})

		Convey("Then unknown names should be rejected", func() {
			_, err := codec.ParseFormat("xml")
			So(errors.Is(err, codec.ErrUnknownFormat), ShouldBeTrue)
		})

		Convey("Then an unknown format option should leave the default in place", func() {
			So(codec.New(codec.WithFormat("xml")).Format(), ShouldEqual, codec.FormatJSON)
		})
	})

	Convey("Given an indenting JSON codec", t, func() {
		data, err := codec.New(codec.WithIndent("  ")).Marshal(model.NewChallenge("rev1"))

		Convey("Then output should be pretty-printed without a trailing newline", func() {
			So(err, ShouldBeNil)
			So(string(data), ShouldStartWith, "{\n  \"__Challenge__\": {\n    \"name\": \"rev1\"")
			So(string(data), ShouldEndWith, "}")
		})
	})

	Convey("Given a YAML codec", t, func() {
		cd := codec.New(codec.WithFormat(codec.FormatYAML))
		data, err := cd.Marshal(sample.NoobCTF())
		So(err, ShouldBeNil)

		Convey("Then the tagged containers should appear as YAML keys", func() {
			So(string(data), ShouldContainSubstring, "__Event__:")
			So(string(data), ShouldContainSubstring, "__Challenge__:")
			So(string(data), ShouldContainSubstring, "teammate: grmmpff")
		})

		Convey("Then rendering should return the text unchanged", func() {
			text, err := cd.Render(data)
			So(err, ShouldBeNil)
			So(text, ShouldEqual, string(data))
		})
	})

	Convey("Given a CBOR codec", t, func() {
		cd := codec.New(codec.WithFormat(codec.FormatCBOR))
		data, err := cd.Marshal(model.NewChallenge("rev1"))
		So(err, ShouldBeNil)

		Convey("Then encoding should be deterministic", func() {
			again, err := cd.Marshal(model.NewChallenge("rev1"))
			So(err, ShouldBeNil)
			So(again, ShouldResemble, data)
		})

		Convey("Then rendering should give diagnostic notation", func() {
			text, err := cd.Render(data)
			So(err, ShouldBeNil)
			So(text, ShouldContainSubstring, `"__Challenge__"`)
			So(text, ShouldContainSubstring, `"rev1"`)
		})

		Convey("Then garbage should fail to decode", func() {
			_, err := cd.Unmarshal([]byte{0xff, 0x00}, codec.DecodeAny)
			So(err, ShouldNotBeNil)
		})
	})
}
