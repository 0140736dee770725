package datastep_test

import (
	"math"

	"github.com/bsm/datastep"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("KeyMap", func() {
	var subject *datastep.KeyMap

	BeforeEach(func() {
		var err error
		subject, err = datastep.NewKeyMap(datastep.StringVar("a"), datastep.NumberVar("b"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should assign contiguous ordinals", func() {
		Expect(subject.Len()).To(Equal(2))
		Expect(subject.Ordinal("a")).To(Equal(0))
		Expect(subject.Ordinal("b")).To(Equal(1))
		Expect(subject.Names()).To(Equal([]string{"a", "b"}))
		Expect(subject.Variable(1)).To(Equal(datastep.Variable{Name: "b", Type: datastep.TypeNumber}))
	})

	It("should reject unknown names", func() {
		_, err := subject.Ordinal("c")
		Expect(err).To(MatchError(`datastep: variable "c" not defined`))
		Expect(err).To(BeAssignableToTypeOf(&datastep.UndefinedVariableError{}))
	})

	It("should reject bad declarations", func() {
		_, err := datastep.NewKeyMap(datastep.StringVar("a"), datastep.NumberVar("a"))
		Expect(err).To(MatchError(`datastep: invalid variable: "a" is declared twice`))

		_, err = datastep.NewKeyMap(datastep.StringVar(""))
		Expect(err).To(MatchError(`datastep: invalid variable: ordinal 0 has no name`))

		_, err = datastep.NewKeyMap(datastep.Variable{Name: "x", Type: 9})
		Expect(err).To(BeAssignableToTypeOf(&datastep.ConfigError{}))
	})

	It("should compare", func() {
		Expect(subject.Equal(datastep.MustKeyMap(datastep.StringVar("a"), datastep.NumberVar("b")))).To(BeTrue())
		Expect(subject.Equal(datastep.MustKeyMap(datastep.StringVar("a"), datastep.StringVar("b")))).To(BeFalse())
		Expect(subject.Equal(datastep.MustKeyMap(datastep.StringVar("a")))).To(BeFalse())
	})

	It("should not leak internals", func() {
		vars := subject.Variables()
		vars[0].Name = "x"
		Expect(subject.Variable(0).Name).To(Equal("a"))
	})
})

var _ = Describe("Value", func() {
	It("should compare by kind, then content", func() {
		Expect(datastep.Null().Compare(datastep.Number(-1))).To(Equal(-1))
		Expect(datastep.Number(1e9).Compare(datastep.String(""))).To(Equal(-1))
		Expect(datastep.Number(2).Compare(datastep.Number(10))).To(Equal(-1))
		Expect(datastep.String("2").Compare(datastep.String("10"))).To(Equal(1))
		Expect(datastep.String("x").Compare(datastep.String("x"))).To(Equal(0))
		Expect(datastep.Null().Equal(datastep.Value{})).To(BeTrue())
	})

	It("should order NaN before other numbers", func() {
		nan := datastep.Number(math.NaN())
		Expect(nan.Compare(datastep.Number(math.Inf(-1)))).To(Equal(-1))
		Expect(datastep.Number(0).Compare(nan)).To(Equal(1))
		Expect(nan.Compare(datastep.Number(math.NaN()))).To(Equal(0))
		Expect(datastep.Null().Compare(nan)).To(Equal(-1))
	})

	It("should format", func() {
		Expect(datastep.Number(1.5).String()).To(Equal("1.5"))
		Expect(datastep.String("x").String()).To(Equal("x"))
		Expect(datastep.Null().String()).To(Equal(""))
	})

	It("should provide type defaults", func() {
		Expect(datastep.TypeString.Zero()).To(Equal(datastep.String("")))
		Expect(datastep.TypeNumber.Zero()).To(Equal(datastep.Number(0)))
	})
})
