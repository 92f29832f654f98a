package e2e_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

func TestE2e(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "E2e Suite")
}

var _ = BeforeSuite(func() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "msg"

	logger, _ := config.Build()
	if logger != nil {
		zap.ReplaceGlobals(logger)
	}
})
