package audio

// Normalize turns arbitrary-format audio bytes into a mono 16 kHz waveform
// (spec §4.3). Native WAV is decoded in-process; everything else goes
// through the external audio tool. cancel, if non-nil, aborts the
// subprocess path promptly.
func Normalize(cancel <-chan struct{}, ffmpegBin string, data []byte) (Waveform, error) {
	if looksLikeWAV(data) {
		if w, err := decodeWAVNative(data); err == nil {
			return w, nil
		}
		// Fall through to the external tool: some WAV variants (e.g. exotic
		// codecs boxed in a RIFF/WAVE container) aren't handled by the
		// in-process decoder.
	}
	return decodeViaFFmpeg(cancel, ffmpegBin, data)
}
