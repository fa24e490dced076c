package record

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"whisperkey/internal/wavio"
)

const framesPerBuffer = 1024

type portAudioDevice struct {
	stream *portaudio.Stream
	buf    []int16
}

// OpenDefaultDevice opens the default input device at 16 kHz mono PCM16.
// It satisfies DeviceOpener.
func OpenDefaultDevice() (InputDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrDeviceUnavailable, err)
	}

	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(wavio.Channels, 0, float64(wavio.SampleRate), len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream: %v", ErrDeviceUnavailable, err)
	}

	return &portAudioDevice{stream: stream, buf: buf}, nil
}

func (d *portAudioDevice) Start() error {
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("%w: start stream: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

func (d *portAudioDevice) Read() ([]int16, error) {
	if err := d.stream.Read(); err != nil {
		return nil, err
	}
	out := make([]int16, len(d.buf))
	copy(out, d.buf)
	return out, nil
}

func (d *portAudioDevice) Stop() error {
	return d.stream.Stop()
}

func (d *portAudioDevice) Close() error {
	err := d.stream.Close()
	portaudio.Terminate()
	return err
}
