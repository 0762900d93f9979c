package protocol_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/countdown/protocol"
)

func request(target string) []byte {
	return []byte(fmt.Sprintf("GET %s HTTP/1.1\r\nHost: localhost:8080\r\nUser-Agent: curl/7.79.1\r\n\r\n", target))
}

var _ = Describe("Parsing", func() {
	Describe("ParseRequest()", func() {
		DescribeTable("recovers the requested components",
			func(target string, expected protocol.TimeComponents) {
				components, err := protocol.ParseRequest(request(target), protocol.Strict)
				Expect(err).To(Succeed())
				Expect(components).To(Equal(expected))
			},
			Entry("h:m:s", "/1:15:0", protocol.TimeComponents{Hours: 1, Minutes: 15}),
			Entry("m:s", "/2:30", protocol.TimeComponents{Minutes: 2, Seconds: 30}),
			Entry("s", "/42", protocol.TimeComponents{Seconds: 42}),
			Entry("zero", "/0", protocol.TimeComponents{}),
			Entry("99:59:59", "/99:59:59", protocol.TimeComponents{Hours: 99, Minutes: 59, Seconds: 59}),
			Entry("leading zeros", "/01:05:09", protocol.TimeComponents{Hours: 1, Minutes: 5, Seconds: 9}),
			Entry("oversized components", "/0:600:90", protocol.TimeComponents{Minutes: 600, Seconds: 90}),
			Entry("trailing path segments", "/5/ignored", protocol.TimeComponents{Seconds: 5}),
			Entry("extra leading components", "/7:1:2:3", protocol.TimeComponents{Hours: 1, Minutes: 2, Seconds: 3}),
		)

		It("only looks at the first line", func() {
			data := []byte("GET /10 HTTP/1.1\nGET /20 HTTP/1.1\n")
			components, err := protocol.ParseRequest(data, protocol.Strict)
			Expect(err).To(Succeed())
			Expect(components.Seconds).To(BeEquivalentTo(10))
		})

		It("accepts a partial request line", func() {
			components, err := protocol.ParseRequest([]byte("GET /3:2"), protocol.Strict)
			Expect(err).To(Succeed())
			Expect(components).To(Equal(protocol.TimeComponents{Minutes: 3, Seconds: 2}))
		})

		DescribeTable("reports malformed requests",
			func(data []byte, expected error) {
				_, err := protocol.ParseRequest(data, protocol.Strict)
				Expect(errors.Is(err, expected)).To(BeTrue())
				Expect(errors.Is(err, protocol.ErrMalformedRequest)).To(BeTrue())
			},
			Entry("non numeric", request("/abc"), protocol.ErrInvalidComponent),
			Entry("non numeric minutes", request("/x:10"), protocol.ErrInvalidComponent),
			Entry("non numeric hours", request("/x:1:10"), protocol.ErrInvalidComponent),
			Entry("negative", request("/-5"), protocol.ErrInvalidComponent),
			Entry("empty path", request("/"), protocol.ErrInvalidComponent),
			Entry("empty component", request("/1::5"), protocol.ErrInvalidComponent),
			Entry("no leading slash", request("10"), protocol.ErrMissingDuration),
			Entry("missing target", []byte("GET\r\n"), protocol.ErrMissingTarget),
			Entry("empty first line", []byte("\r\nGET /5 HTTP/1.1\r\n"), protocol.ErrMissingTarget),
			Entry("empty request", []byte{}, protocol.ErrMissingTarget),
			Entry("invalid UTF-8", []byte("GET /\xff\xfe HTTP/1.1\r\n"), protocol.ErrInvalidEncoding),
		)

		It("parses components that overflow once totalled", func() {
			components, err := protocol.ParseRequest(request("/18446744073709551615:0:0"), protocol.Strict)
			Expect(err).To(Succeed())

			_, err = components.Total()
			Expect(errors.Is(err, protocol.ErrDurationOverflow)).To(BeTrue())
		})

		It("does not panic on arbitrary input", func() {
			inputs := [][]byte{
				nil,
				[]byte(" "),
				[]byte("\n"),
				[]byte("\r"),
				[]byte("A B"),
				[]byte("A / C"),
				[]byte("A // C"),
				[]byte(strings.Repeat(":", 4096)),
			}

			for _, input := range inputs {
				Expect(func() {
					_, _ = protocol.ParseRequest(input, protocol.Strict)
					_, _ = protocol.ParseRequest(input, protocol.Lenient)
				}).NotTo(Panic())
			}
		})

		Describe("Lenient", func() {
			It("reads a bad seconds component as zero", func() {
				components, err := protocol.ParseRequest(request("/1:abc"), protocol.Lenient)
				Expect(err).To(Succeed())
				Expect(components).To(Equal(protocol.TimeComponents{Minutes: 1}))

				components, err = protocol.ParseRequest(request("/"), protocol.Lenient)
				Expect(err).To(Succeed())
				Expect(components).To(Equal(protocol.TimeComponents{}))
			})

			It("still rejects bad minutes and hours", func() {
				_, err := protocol.ParseRequest(request("/abc:10"), protocol.Lenient)
				Expect(errors.Is(err, protocol.ErrInvalidComponent)).To(BeTrue())

				_, err = protocol.ParseRequest(request("/abc:1:10"), protocol.Lenient)
				Expect(errors.Is(err, protocol.ErrInvalidComponent)).To(BeTrue())
			})

			It("still rejects requests without a target", func() {
				_, err := protocol.ParseRequest([]byte("GET\r\n"), protocol.Lenient)
				Expect(errors.Is(err, protocol.ErrMissingTarget)).To(BeTrue())
			})
		})
	})

	Describe("TimeComponents.Total()", func() {
		It("adds up hours, minutes and seconds", func() {
			total, err := protocol.TimeComponents{Hours: 1, Minutes: 15}.Total()
			Expect(err).To(Succeed())
			Expect(total).To(BeEquivalentTo(4500))

			total, err = protocol.TimeComponents{Hours: 99, Minutes: 59, Seconds: 59}.Total()
			Expect(err).To(Succeed())
			Expect(total).To(BeEquivalentTo(359999))
		})

		It("reports overflow", func() {
			_, err := protocol.TimeComponents{Seconds: ^uint64(0), Minutes: 1}.Total()
			Expect(err).To(MatchError(protocol.ErrDurationOverflow))

			_, err = protocol.TimeComponents{Minutes: ^uint64(0)}.Total()
			Expect(err).To(MatchError(protocol.ErrDurationOverflow))
		})
	})

	Describe("RequestLine()", func() {
		It("strips the line terminator", func() {
			Expect(protocol.RequestLine([]byte("GET /5 HTTP/1.1\r\nHost: x\r\n"))).To(Equal([]byte("GET /5 HTTP/1.1")))
			Expect(protocol.RequestLine([]byte("GET /5"))).To(Equal([]byte("GET /5")))
			Expect(protocol.RequestLine([]byte{})).To(BeEmpty())
		})
	})

	Describe("ReadResponse()", func() {
		It("returns an error if there is no status line", func() {
			_, err := protocol.ReadResponse(bytes.NewReader([]byte("nope")))
			Expect(errors.Is(err, io.EOF)).To(BeTrue())

			_, err = protocol.ReadResponse(bytes.NewReader([]byte("nope\r\n\r\n")))
			Expect(err).To(MatchError(protocol.ErrResponseMissingStatus))
		})

		It("decodes a usage response", func() {
			var w bytes.Buffer
			Expect(protocol.WriteUsage(&w)).To(Succeed())

			resp, err := protocol.ReadResponse(&w)
			Expect(err).To(Succeed())
			Expect(resp.Status).To(Equal("HTTP/1.1 200 OK"))
			Expect(resp.IsUsage()).To(BeTrue())
			Expect(resp.Lines).To(BeEmpty())
			Expect(resp.Alarm).To(BeFalse())
		})

		It("decodes countdown lines and the alarm", func() {
			var w bytes.Buffer
			Expect(protocol.WriteStatus(&w)).To(Succeed())
			Expect(protocol.WriteLine(&w, "07", true, false)).To(Succeed())
			Expect(protocol.WriteLine(&w, "06", false, false)).To(Succeed())
			Expect(protocol.WriteLine(&w, "05", false, true)).To(Succeed())
			Expect(protocol.WriteAlarm(&w)).To(Succeed())

			resp, err := protocol.ReadResponse(&w)
			Expect(err).To(Succeed())
			Expect(resp.IsUsage()).To(BeFalse())
			Expect(resp.Alarm).To(BeTrue())
			Expect(resp.Lines).To(Equal([]protocol.Line{
				{Text: "07"},
				{Text: "06", Overwrites: true},
				{Text: "05", Overwrites: true, Warning: true},
			}))
		})

		It("decodes a truncated countdown", func() {
			var w bytes.Buffer
			Expect(protocol.WriteStatus(&w)).To(Succeed())
			Expect(protocol.WriteLine(&w, "01:00", true, false)).To(Succeed())

			resp, err := protocol.ReadResponse(&w)
			Expect(err).To(Succeed())
			Expect(resp.Alarm).To(BeFalse())
			Expect(resp.Texts()).To(Equal([]string{"01:00"}))
		})
	})

	Describe("RemoveTrailingCR()", func() {
		It("does nothing if the data does not end in CR", func() {
			data := []byte("I am awesome data")
			Expect(protocol.RemoveTrailingCR(data)).To(Equal(data))
		})

		It("removes the trailling CR", func() {
			input := []byte("I am awesome data\r")
			output := []byte("I am awesome data")
			Expect(protocol.RemoveTrailingCR(input)).To(Equal(output))
		})

		It("copes with empty data", func() {
			Expect(protocol.RemoveTrailingCR([]byte{})).To(BeEmpty())
		})
	})
})
