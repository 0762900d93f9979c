package env

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/luma/countdown/protocol"
)

var _ = Describe("env / Config", func() {
	It("defaults to strict parsing on all interfaces", func() {
		config, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{}))
		Expect(err).To(Succeed())

		Expect(config.Host).To(Equal("0.0.0.0"))
		Expect(config.HTTPPort).To(BeEmpty())
		Expect(config.LogLevel).To(Equal("info"))
		Expect(config.RedThreshold).To(Equal(protocol.DefaultRedThreshold))
		Expect(config.ParseMode()).To(Equal(protocol.Strict))
		Expect(config.ReadTimeout).To(Equal(30 * time.Second))
		Expect(config.Reuseport).To(BeFalse())
		Expect(config.NumListeners).To(Equal(0))
	})

	It("reads overrides from the environment", func() {
		config, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{
			"COUNTDOWN_HOST":            "127.0.0.1",
			"COUNTDOWN_HTTP_PORT":       "9090",
			"COUNTDOWN_RED_THRESHOLD":   "10",
			"COUNTDOWN_LENIENT_SECONDS": "true",
			"COUNTDOWN_READ_TIMEOUT":    "5s",
			"COUNTDOWN_REUSEPORT":       "true",
			"COUNTDOWN_LISTENERS":       "4",
		}))
		Expect(err).To(Succeed())

		Expect(config.Host).To(Equal("127.0.0.1"))
		Expect(config.HTTPPort).To(Equal("9090"))
		Expect(config.RedThreshold).To(BeEquivalentTo(10))
		Expect(config.ParseMode()).To(Equal(protocol.Lenient))
		Expect(config.ReadTimeout).To(Equal(5 * time.Second))
		Expect(config.Reuseport).To(BeTrue())
		Expect(config.NumListeners).To(Equal(4))
	})

	It("rejects a negative number of listeners", func() {
		_, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{
			"COUNTDOWN_LISTENERS": "-1",
		}))
		Expect(err).To(HaveOccurred())
	})

	It("rejects values that do not parse", func() {
		_, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{
			"COUNTDOWN_RED_THRESHOLD": "soon",
		}))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("env / MakeLogger", func() {
	It("builds a logger at the requested level", func() {
		log, err := MakeLogger("warn")
		Expect(err).To(Succeed())
		Expect(log.Core().Enabled(zapcore.InfoLevel)).To(BeFalse())
		Expect(log.Core().Enabled(zapcore.WarnLevel)).To(BeTrue())
	})

	It("rejects unknown levels", func() {
		_, err := MakeLogger("loud")
		Expect(err).To(HaveOccurred())
	})
})
