package corpus

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
)

// readNpyMatrix reads a 2-D NumPy .npy array of float32 or float64 values
// in C (row-major) order. This is the layout numpy.save produces for an
// embedding matrix; the format is documented in the NumPy NEP 1 spec.
func readNpyMatrix(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)

	descr, rows, cols, err := readNpyHeader(r)
	if err != nil {
		return nil, err
	}

	var itemSize int
	switch descr {
	case "<f4":
		itemSize = 4
	case "<f8":
		itemSize = 8
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q (want <f4 or <f8)", descr)
	}

	matrix := make([][]float32, rows)
	buf := make([]byte, cols*itemSize)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("short read at row %d: %v", i, err)
		}
		row := make([]float32, cols)
		for j := 0; j < cols; j++ {
			switch itemSize {
			case 4:
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
			case 8:
				row[j] = float32(math.Float64frombits(binary.LittleEndian.Uint64(buf[j*8:])))
			}
		}
		matrix[i] = row
	}

	return matrix, nil
}

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\((\s*\d+\s*,\s*\d+\s*,?\s*)\)`)
	npyShapeNums = regexp.MustCompile(`\d+`)
)

// readNpyHeader consumes the magic string, version, and header dict, and
// returns the dtype descriptor plus the two shape dimensions.
func readNpyHeader(r io.Reader) (descr string, rows, cols int, err error) {
	magic := make([]byte, 8)
	if _, err := io.ReadFull(r, magic); err != nil {
		return "", 0, 0, fmt.Errorf("reading magic: %v", err)
	}
	if string(magic[:6]) != "\x93NUMPY" {
		return "", 0, 0, fmt.Errorf("not an npy file (bad magic)")
	}

	major := magic[6]
	var headerLen int
	switch major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return "", 0, 0, fmt.Errorf("reading header length: %v", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return "", 0, 0, fmt.Errorf("reading header length: %v", err)
		}
		headerLen = int(n)
	default:
		return "", 0, 0, fmt.Errorf("unsupported npy version %d.%d", magic[6], magic[7])
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", 0, 0, fmt.Errorf("reading header: %v", err)
	}
	h := string(header)

	m := npyDescrRe.FindStringSubmatch(h)
	if m == nil {
		return "", 0, 0, fmt.Errorf("npy header missing descr")
	}
	descr = m[1]

	if f := npyFortranRe.FindStringSubmatch(h); f == nil {
		return "", 0, 0, fmt.Errorf("npy header missing fortran_order")
	} else if f[1] == "True" {
		return "", 0, 0, fmt.Errorf("fortran-ordered arrays are not supported")
	}

	s := npyShapeRe.FindStringSubmatch(h)
	if s == nil {
		return "", 0, 0, fmt.Errorf("npy shape is not 2-D")
	}
	dims := npyShapeNums.FindAllString(s[1], -1)
	if len(dims) != 2 {
		return "", 0, 0, fmt.Errorf("npy shape is not 2-D")
	}
	rows, _ = strconv.Atoi(dims[0])
	cols, _ = strconv.Atoi(dims[1])
	if rows < 0 || cols <= 0 {
		return "", 0, 0, fmt.Errorf("invalid npy shape (%d, %d)", rows, cols)
	}

	return descr, rows, cols, nil
}
