package datastep_test

import (
	"github.com/bsm/datastep"
	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("RowSet", func() {
	var keys = datastep.MustKeyMap(datastep.StringVar("grp"), datastep.StringVar("sub"), datastep.NumberVar("n"))

	// feed runs rows through a cursor and collects a value per current row.
	feed := func(rows []*datastep.Row, lag, lead int, by []string, fn func(*datastep.RowSet)) {
		cur, err := datastep.NewCursor(&sliceReader{rows: rows}, keys, lag, lead, by...)
		Expect(err).NotTo(HaveOccurred())
		for cur.Next() {
			fn(cur.Rows())
		}
		Expect(cur.Err()).NotTo(HaveOccurred())
	}

	grpRows := func(grps ...string) []*datastep.Row {
		rows := make([]*datastep.Row, 0, len(grps))
		for i, g := range grps {
			rows = append(rows, newRow(keys, datastep.String(g), datastep.String(""), datastep.Number(float64(i+1))))
		}
		return rows
	}

	It("should add rows at the lead end", func() {
		subject, err := datastep.NewRowSet(keys, 1, 1)
		Expect(err).NotTo(HaveOccurred())

		for i := 1; i <= 3; i++ {
			Expect(subject.Add(newRow(keys, datastep.String("x"), datastep.String(""), datastep.Number(float64(i))))).To(Succeed())
		}

		next, err := subject.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Get("n")).To(Equal(datastep.Number(3)))
		Expect(subject.Curr().Get("n")).To(Equal(datastep.Number(2)))
		prev, err := subject.Prev()
		Expect(err).NotTo(HaveOccurred())
		Expect(prev.Get("n")).To(Equal(datastep.Number(1)))

		Expect(subject.Curr().RowNumber()).To(Equal(int64(2)))
		Expect(next.RowNumber()).To(Equal(int64(3)))
	})

	It("should number rows consecutively", func() {
		subject, err := datastep.NewRowSet(keys, 2, 3)
		Expect(err).NotTo(HaveOccurred())

		row := datastep.NewRow(keys)
		for i := int64(1); i <= 20; i++ {
			Expect(subject.Add(row)).To(Succeed())
			Expect(row.RowNumber()).To(Equal(i))

			lead, err := subject.Lead(3)
			Expect(err).NotTo(HaveOccurred())
			Expect(lead.RowNumber()).To(Equal(i))
		}
	})

	It("should reject mismatching rows", func() {
		subject, err := datastep.NewRowSet(keys, 1, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(subject.Add(datastep.NewRow(sortKeys))).To(MatchError(datastep.ErrKeyMapMismatch))
	})

	table.DescribeTable("should reject offsets outside of the window",
		func(lag, lead int) {
			subject, err := datastep.NewRowSet(keys, lag, lead)
			Expect(err).NotTo(HaveOccurred())

			for n := 0; n <= lag; n++ {
				Expect(subject.Lag(n)).NotTo(BeNil())
			}
			for n := 0; n <= lead; n++ {
				Expect(subject.Lead(n)).NotTo(BeNil())
			}

			_, err = subject.Lag(lag + 1)
			Expect(err).To(Equal(&datastep.RowOffsetError{Offset: -lag - 1, LagRows: lag, LeadRows: lead}))
			_, err = subject.Lead(lead + 1)
			Expect(err).To(Equal(&datastep.RowOffsetError{Offset: lead + 1, LagRows: lag, LeadRows: lead}))
			_, err = subject.Row(-lag - 5)
			Expect(err).To(BeAssignableToTypeOf(&datastep.RowOffsetError{}))
		},
		table.Entry("no lag, no lead", 0, 0),
		table.Entry("1/1", 1, 1),
		table.Entry("lag only", 3, 0),
		table.Entry("lead only", 0, 2),
		table.Entry("wide", 4, 5),
	)

	It("should validate options", func() {
		_, err := datastep.NewRowSet(keys, -1, 1)
		Expect(err).To(MatchError(`datastep: invalid lag rows: must not be negative`))
		_, err = datastep.NewRowSet(keys, 1, 0, "grp")
		Expect(err).To(MatchError(`datastep: invalid by groups: require at least one lag and one lead row`))
		_, err = datastep.NewRowSet(keys, 1, 1, "missing")
		Expect(err).To(MatchError(`datastep: variable "missing" not defined`))
	})

	It("should flag by-groups", func() {
		var first, last []bool
		feed(grpRows("A", "A", "A", "B", "B"), 1, 1, []string{"grp"}, func(s *datastep.RowSet) {
			f, err := s.First("grp")
			Expect(err).NotTo(HaveOccurred())
			l, err := s.Last("grp")
			Expect(err).NotTo(HaveOccurred())
			first, last = append(first, f), append(last, l)

			Expect(s.IsFirst()).To(Equal(f))
			Expect(s.IsLast()).To(Equal(l))
		})
		Expect(first).To(Equal([]bool{true, false, false, true, false}))
		Expect(last).To(Equal([]bool{false, false, true, false, true}))
	})

	It("should treat the start of the stream as a boundary", func() {
		var first, last []bool
		feed(grpRows("", "", "x"), 1, 1, []string{"grp"}, func(s *datastep.RowSet) {
			first, last = append(first, s.IsFirst()), append(last, s.IsLast())
		})
		Expect(first).To(Equal([]bool{true, false, true}))
		Expect(last).To(Equal([]bool{false, true, true}))
	})

	It("should flag the final row of readers which only signal EOF", func() {
		cur, err := datastep.NewCursor(&eofReader{rows: grpRows("A", "", "")}, keys, 1, 1, "grp")
		Expect(err).NotTo(HaveOccurred())

		var last, lastRow []bool
		for cur.Next() {
			l, err := cur.Rows().Last("grp")
			Expect(err).NotTo(HaveOccurred())
			last, lastRow = append(last, l), append(lastRow, cur.Curr().LastRow())
		}
		Expect(cur.Err()).NotTo(HaveOccurred())
		Expect(last).To(Equal([]bool{true, false, true}))
		Expect(lastRow).To(Equal([]bool{false, false, true}))
	})

	It("should flag a single row as first and last", func() {
		var n int
		feed(grpRows("A"), 1, 1, []string{"grp"}, func(s *datastep.RowSet) {
			n++
			Expect(s.IsFirst()).To(BeTrue())
			Expect(s.IsLast()).To(BeTrue())
		})
		Expect(n).To(Equal(1))
	})

	It("should propagate boundaries to finer groups", func() {
		rows := []*datastep.Row{
			newRow(keys, datastep.String("A"), datastep.String("x"), datastep.Number(1)),
			newRow(keys, datastep.String("A"), datastep.String("x"), datastep.Number(2)),
			newRow(keys, datastep.String("B"), datastep.String("x"), datastep.Number(3)),
			newRow(keys, datastep.String("B"), datastep.String("y"), datastep.Number(4)),
		}

		type flags struct{ GF, GL, SF, SL bool }
		var seen []flags
		feed(rows, 1, 1, []string{"grp", "sub"}, func(s *datastep.RowSet) {
			gf, _ := s.First("grp")
			gl, _ := s.Last("grp")
			sf, _ := s.First("sub")
			sl, _ := s.Last("sub")
			seen = append(seen, flags{gf, gl, sf, sl})
		})
		Expect(seen).To(Equal([]flags{
			{GF: true, GL: false, SF: true, SL: false},
			{GF: false, GL: true, SF: false, SL: true},
			{GF: true, GL: false, SF: true, SL: true},
			{GF: false, GL: true, SF: true, SL: true},
		}))
	})

	It("should reject unknown by-group keys", func() {
		subject, err := datastep.NewRowSet(keys, 1, 1, "grp")
		Expect(err).NotTo(HaveOccurred())
		_, err = subject.First("sub")
		Expect(err).To(BeAssignableToTypeOf(&datastep.UndefinedVariableError{}))
		_, err = subject.Last("n")
		Expect(err).To(HaveOccurred())
	})

	It("should not flag without by-groups", func() {
		feed(grpRows("A", "B"), 0, 0, nil, func(s *datastep.RowSet) {
			Expect(s.IsFirst()).To(BeFalse())
			Expect(s.IsLast()).To(BeFalse())
		})
	})
})

var _ = Describe("Cursor", func() {
	var keys = datastep.MustKeyMap(datastep.NumberVar("n"))

	numbered := func(n int) []*datastep.Row {
		rows := make([]*datastep.Row, 0, n)
		for i := 1; i <= n; i++ {
			rows = append(rows, newRow(keys, datastep.Number(float64(i))))
		}
		return rows
	}

	table.DescribeTable("should visit every row exactly once",
		func(lag, lead, n int) {
			subject, err := datastep.NewCursor(&sliceReader{rows: numbered(n)}, keys, lag, lead)
			Expect(err).NotTo(HaveOccurred())

			var got []float64
			var lastRows int
			for subject.Next() {
				curr := subject.Curr()
				Expect(curr.RowNumber()).To(Equal(subject.N()))
				got = append(got, getValue(curr, "n").Float())
				if curr.LastRow() {
					lastRows++
				}
			}
			Expect(subject.Err()).NotTo(HaveOccurred())
			Expect(subject.Next()).To(BeFalse())

			Expect(got).To(HaveLen(n))
			for i, v := range got {
				Expect(v).To(Equal(float64(i + 1)))
			}
			if n > 0 {
				Expect(lastRows).To(Equal(1))
				Expect(subject.Curr().LastRow()).To(BeTrue())
			}
		},
		table.Entry("empty", 1, 1, 0),
		table.Entry("no window", 0, 0, 5),
		table.Entry("1/1", 1, 1, 5),
		table.Entry("lead beyond stream", 1, 4, 2),
		table.Entry("wide", 3, 2, 17),
	)

	It("should flag the final row without lead rows", func() {
		subject, err := datastep.NewCursor(&eofReader{rows: numbered(3)}, keys, 0, 0)
		Expect(err).NotTo(HaveOccurred())

		var lastRow []bool
		for subject.Next() {
			lastRow = append(lastRow, subject.Curr().LastRow())
		}
		Expect(subject.Err()).NotTo(HaveOccurred())
		Expect(lastRow).To(Equal([]bool{false, false, true}))
	})

	It("should expose cleared lead rows beyond the stream", func() {
		subject, err := datastep.NewCursor(&sliceReader{rows: numbered(2)}, keys, 1, 2)
		Expect(err).NotTo(HaveOccurred())

		Expect(subject.Next()).To(BeTrue())
		Expect(subject.Next()).To(BeTrue())
		lead, err := subject.Rows().Lead(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(lead.Get("n")).To(Equal(datastep.Number(0)))
		prev, err := subject.Rows().Prev()
		Expect(err).NotTo(HaveOccurred())
		Expect(prev.Get("n")).To(Equal(datastep.Number(1)))
	})
})
