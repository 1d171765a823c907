// Package audio sniffs uploaded voice samples so the service can reject
// non-audio uploads before handing them to the cloning provider.
package audio

import "bytes"

// Format identifies the container of an uploaded audio sample.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatOgg     Format = "ogg"
	FormatFLAC    Format = "flac"
	FormatM4A     Format = "m4a"
	FormatUnknown Format = ""
)

// Detect sniffs the sample's magic bytes. Browsers lie about filenames
// and content types, the leading bytes do not.
func Detect(data []byte) Format {
	if len(data) < 12 {
		return FormatUnknown
	}
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// Raw MPEG audio frame sync.
		return FormatMP3
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatOgg
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.Equal(data[4:8], []byte("ftyp")):
		return FormatM4A
	default:
		return FormatUnknown
	}
}

// Ext returns the storage key extension for the format, dot included.
func (f Format) Ext() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + string(f)
}
