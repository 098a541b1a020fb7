//go:build darwin && cgo

package codec

/*
#cgo LDFLAGS: -framework VideoToolbox -framework CoreMedia

#include <VideoToolbox/VideoToolbox.h>

static int vt_h264_supported(void) {
    VTCompressionSessionRef session = NULL;
    OSStatus status = VTCompressionSessionCreate(NULL, 1280, 720,
        kCMVideoCodecType_H264, NULL, NULL, NULL, NULL, NULL, &session);
    if (status == noErr && session != NULL) {
        VTCompressionSessionInvalidate(session);
        CFRelease(session);
        return 1;
    }
    return 0;
}
*/
import "C"

func init() {
	registerHardwareFactory(newVideoToolboxEncoder)
}

// videoToolboxAvailable actually stands up and tears down a throwaway
// VTCompressionSession; VideoToolbox reports H.264 support this way rather
// than through a static capability flag.
func videoToolboxAvailable() bool {
	return C.vt_h264_supported() == 1
}

func newVideoToolboxEncoder(cfg Config) (Encoder, error) {
	if !videoToolboxAvailable() {
		return nil, ErrNotAvailable
	}
	return newSoftwareH264Backend(cfg, "h264-videotoolbox")
}
