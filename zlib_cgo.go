//go:build clibs

package archive

/*
#cgo LDFLAGS: -lz

#include <zlib.h>

*/
import "C"

import (
	"fmt"
	"unsafe"
)

func zlibEncode(buf []byte, level int) ([]byte, error) {
	dLen := C.compressBound(C.uLong(len(buf)))
	dst := make([]byte, dLen)
	src := unsafe.Pointer(nil)
	if len(buf) > 0 {
		src = unsafe.Pointer(&buf[0])
	}

	rc := C.compress2((*C.Bytef)(unsafe.Pointer(&dst[0])), (*C.uLongf)(unsafe.Pointer(&dLen)),
		(*C.Bytef)(src), C.uLong(len(buf)),
		C.int(level))
	if rc != C.Z_OK {
		return nil, fmt.Errorf("archive: zlib compress2 returned %d", int(rc))
	}
	return dst[:dLen], nil
}

func zlibDecode(uln int, buf []byte) ([]byte, error) {
	if uln == 0 || len(buf) == 0 {
		return nil, ErrFormat{errBadCompressedSize}
	}
	dst := make([]byte, uln)
	dLen := C.uLongf(uln)

	rc := C.uncompress((*C.Bytef)(unsafe.Pointer(&dst[0])), &dLen,
		(*C.Bytef)(unsafe.Pointer(&buf[0])), C.uLong(len(buf)))
	if rc != C.Z_OK {
		return nil, formatf("%s: zlib uncompress returned %d", errBadCompressedBody, int(rc))
	}
	if int(dLen) != uln {
		return nil, ErrFormat{errBadCompressedSize}
	}
	return dst, nil
}
