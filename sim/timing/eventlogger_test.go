package timing

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type namedHandler struct {
	recordingHandler
}

func (h *namedHandler) Name() string {
	return "Port"
}

var _ = Describe("EventLogger", func() {
	It("should log events before they are handled", func() {
		buf := new(bytes.Buffer)
		engine := NewSerialEngine()
		engine.AcceptHook(NewEventLogger(log.New(buf, "", 0)))

		named := &namedHandler{recordingHandler{engine: engine}}
		anonymous := &recordingHandler{engine: engine}

		secondary := newLabeledEvent(5*Nanosecond, named, "b")
		secondary.MarkSecondary()

		engine.Schedule(newLabeledEvent(2*Nanosecond, anonymous, "a"))
		engine.Schedule(secondary)

		Expect(engine.Run()).To(Succeed())
		Expect(buf.String()).To(Equal(
			"2ns, labeledEvent\n" +
				"5ns, labeledEvent (secondary) -> Port\n"))
	})
})
