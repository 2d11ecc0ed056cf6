package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"padim-inspector/internal/domain/entity"
)

var (
	// ErrArtifactNotFound — артефакта нет в хранилище.
	ErrArtifactNotFound = errors.New("storage: artifact not found")
	// ErrCorruptArtifact — артефакт повреждён или записан в неизвестном формате.
	ErrCorruptArtifact = errors.New("storage: corrupt artifact")
)

const (
	artifactMagic   = 0x4d444150 // "PADM"
	artifactVersion = 1
	headerSize      = 20
)

// Kind — тип содержимого артефакта.
type Kind uint8

const (
	KindDistribution Kind = 1
	KindMaps         Kind = 2
	KindScores       Kind = 3
)

// Compression — алгоритм сжатия полезной нагрузки.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZSTD Compression = 1
	CompressionLZ4  Compression = 2
)

// ParseCompression разбирает имя алгоритма сжатия.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zstd":
		return CompressionZSTD, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// Codec кодирует артефакты в самоописываемый бинарный формат:
//
//	Magic (4) | Version (2) | Kind (1) | Compression (1) | CRC32C (4) | Length (8) | Payload
//
// CRC считается по сжатой полезной нагрузке.
type Codec struct {
	Compression Compression
}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// EncodeDistribution сериализует распределение вместе с индексом каналов.
func (c Codec) EncodeDistribution(d *entity.Distribution) ([]byte, error) {
	pb := newPayloadBuffer(make([]byte, 0, 64+8*(len(d.Mean)+len(d.Covariance))))
	pb.writeString(d.Arch)
	pb.writeUint32(uint32(d.Channels))
	pb.writeUint32(uint32(d.Height))
	pb.writeUint32(uint32(d.Width))
	pb.writeUint32(uint32(d.Samples))
	pb.writeFloat64(d.Ridge)
	if d.Index.Len() > 0 {
		pb.writeUint64(d.Index.Seed)
		pb.writeUint32(uint32(d.Index.Total))
		pb.writeInts(d.Index.Indices)
	} else {
		pb.writeUint64(0)
		pb.writeUint32(0)
		pb.writeInts(nil)
	}
	pb.writeFloats(d.Mean)
	pb.writeFloats(d.Covariance)
	if pb.err != nil {
		return nil, pb.err
	}
	return c.seal(KindDistribution, pb.buf)
}

// DecodeDistribution восстанавливает распределение.
func (c Codec) DecodeDistribution(data []byte) (*entity.Distribution, error) {
	payload, err := c.open(KindDistribution, data)
	if err != nil {
		return nil, err
	}
	pb := newPayloadBuffer(payload)
	d := &entity.Distribution{}
	d.Arch = pb.readString()
	d.Channels = int(pb.readUint32())
	d.Height = int(pb.readUint32())
	d.Width = int(pb.readUint32())
	d.Samples = int(pb.readUint32())
	d.Ridge = pb.readFloat64()
	seed := pb.readUint64()
	total := int(pb.readUint32())
	if indices := pb.readInts(); len(indices) > 0 {
		d.Index = &entity.ChannelIndex{Seed: seed, Total: total, Indices: indices}
		if err := d.Index.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
		}
	}
	d.Mean = pb.readFloats()
	d.Covariance = pb.readFloats()
	if pb.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, pb.err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	return d, nil
}

// EncodeMaps сериализует карты аномалий прохода вместе с именами изображений.
func (c Codec) EncodeMaps(eval *entity.Evaluation) ([]byte, error) {
	m := eval.Maps
	pb := newPayloadBuffer(make([]byte, 0, 64+8*len(m.Data)))
	pb.writeString(eval.RunID)
	pb.writeStrings(eval.Names)
	pb.writeUint32(uint32(m.N))
	pb.writeUint32(uint32(m.Height))
	pb.writeUint32(uint32(m.Width))
	pb.writeFloats(m.Data)
	if pb.err != nil {
		return nil, pb.err
	}
	return c.seal(KindMaps, pb.buf)
}

// DecodeMaps восстанавливает карты аномалий; возвращает run id и имена изображений.
func (c Codec) DecodeMaps(data []byte) (string, []string, *entity.Maps, error) {
	payload, err := c.open(KindMaps, data)
	if err != nil {
		return "", nil, nil, err
	}
	pb := newPayloadBuffer(payload)
	runID := pb.readString()
	names := pb.readStrings()
	m := &entity.Maps{}
	m.N = int(pb.readUint32())
	m.Height = int(pb.readUint32())
	m.Width = int(pb.readUint32())
	m.Data = pb.readFloats()
	if pb.err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, pb.err)
	}
	if len(m.Data) != m.N*m.Height*m.Width {
		return "", nil, nil, fmt.Errorf("%w: maps data length %d does not match %v", ErrCorruptArtifact, len(m.Data), m.Shape())
	}
	return runID, names, m, nil
}

// EncodeScores сериализует оценки прохода.
func (c Codec) EncodeScores(eval *entity.Evaluation) ([]byte, error) {
	pb := newPayloadBuffer(nil)
	pb.writeString(eval.RunID)
	pb.writeStrings(eval.Names)
	pb.writeFloats(eval.Scores)
	if pb.err != nil {
		return nil, pb.err
	}
	return c.seal(KindScores, pb.buf)
}

// DecodeScores восстанавливает оценки прохода.
func (c Codec) DecodeScores(data []byte) (string, []string, []float64, error) {
	payload, err := c.open(KindScores, data)
	if err != nil {
		return "", nil, nil, err
	}
	pb := newPayloadBuffer(payload)
	runID := pb.readString()
	names := pb.readStrings()
	scores := pb.readFloats()
	if pb.err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, pb.err)
	}
	return runID, names, scores, nil
}

func (c Codec) seal(kind Kind, payload []byte) ([]byte, error) {
	body, err := compress(c.Compression, payload)
	if err != nil {
		return nil, fmt.Errorf("compress artifact: %w", err)
	}
	out := make([]byte, headerSize, headerSize+len(body))
	binary.LittleEndian.PutUint32(out[0:4], artifactMagic)
	binary.LittleEndian.PutUint16(out[4:6], artifactVersion)
	out[6] = byte(kind)
	out[7] = byte(c.Compression)
	binary.LittleEndian.PutUint32(out[8:12], crc32.Checksum(body, crc32cTable))
	binary.LittleEndian.PutUint64(out[12:20], uint64(len(body)))
	return append(out, body...), nil
}

// open проверяет заголовок и контрольную сумму. Алгоритм сжатия берётся из заголовка,
// поэтому артефакт читается независимо от текущей настройки Codec.
func (c Codec) open(kind Kind, data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than header", ErrCorruptArtifact, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != artifactMagic {
		return nil, fmt.Errorf("%w: invalid magic %x", ErrCorruptArtifact, magic)
	}
	if version := binary.LittleEndian.Uint16(data[4:6]); version != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptArtifact, version)
	}
	if got := Kind(data[6]); got != kind {
		return nil, fmt.Errorf("%w: artifact kind %d, want %d", ErrCorruptArtifact, got, kind)
	}
	length := binary.LittleEndian.Uint64(data[12:20])
	body := data[headerSize:]
	if uint64(len(body)) != length {
		return nil, fmt.Errorf("%w: payload length %d, header says %d", ErrCorruptArtifact, len(body), length)
	}
	if crc32.Checksum(body, crc32cTable) != binary.LittleEndian.Uint32(data[8:12]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptArtifact)
	}
	payload, err := decompress(Compression(data[7]), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	return payload, nil
}

func compress(alg Compression, payload []byte) ([]byte, error) {
	switch alg {
	case CompressionNone:
		return payload, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(payload, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression %d", alg)
	}
}

func decompress(alg Compression, body []byte) ([]byte, error) {
	switch alg {
	case CompressionNone:
		return body, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(body, nil)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
	default:
		return nil, fmt.Errorf("unknown compression %d", alg)
	}
}

type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func newPayloadBuffer(b []byte) *payloadBuffer {
	return &payloadBuffer{buf: b}
}

func (p *payloadBuffer) writeUint64(v uint64) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
}

func (p *payloadBuffer) writeUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

func (p *payloadBuffer) writeFloat64(v float64) {
	p.writeUint64(math.Float64bits(v))
}

func (p *payloadBuffer) writeString(s string) {
	if p.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		p.err = fmt.Errorf("string too long: %d", len(s))
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) writeStrings(ss []string) {
	p.writeUint32(uint32(len(ss)))
	for _, s := range ss {
		p.writeString(s)
	}
}

func (p *payloadBuffer) writeInts(vs []int) {
	p.writeUint32(uint32(len(vs)))
	for _, v := range vs {
		p.writeUint32(uint32(v))
	}
}

func (p *payloadBuffer) writeFloats(vs []float64) {
	p.writeUint64(uint64(len(vs)))
	for _, v := range vs {
		p.writeFloat64(v)
	}
}

func (p *payloadBuffer) need(n int) bool {
	if p.err != nil {
		return false
	}
	if n < 0 || p.pos+n > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (p *payloadBuffer) readUint64() uint64 {
	if !p.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v
}

func (p *payloadBuffer) readUint32() uint32 {
	if !p.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *payloadBuffer) readFloat64() float64 {
	return math.Float64frombits(p.readUint64())
}

func (p *payloadBuffer) readString() string {
	if !p.need(2) {
		return ""
	}
	l := int(binary.LittleEndian.Uint16(p.buf[p.pos:]))
	p.pos += 2
	if !p.need(l) {
		return ""
	}
	s := string(p.buf[p.pos : p.pos+l])
	p.pos += l
	return s
}

func (p *payloadBuffer) readStrings() []string {
	n := int(p.readUint32())
	if !p.need(2 * n) {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = p.readString()
	}
	return out
}

func (p *payloadBuffer) readInts() []int {
	n := int(p.readUint32())
	if !p.need(4 * n) {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = int(p.readUint32())
	}
	return out
}

func (p *payloadBuffer) readFloats() []float64 {
	n := p.readUint64()
	if p.err != nil {
		return nil
	}
	if n > uint64(len(p.buf)-p.pos)/8 {
		p.err = io.ErrUnexpectedEOF
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = p.readFloat64()
	}
	return out
}
