package natsadapter

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// Sample batches travel in protobuf wire format, equivalent to:
//
//	message Sample {
//	  double lat = 1;
//	  double lon = 2;
//	  int64 seconds = 3; // Unix time
//	  int32 nanos = 4;
//	}
//	message SampleBatch {
//	  string user_id = 1;
//	  string name = 2;
//	  repeated Sample samples = 3;
//	  uint32 offset = 4;
//	  uint32 total = 5;
//	}
const (
	fieldBatchUserID  protowire.Number = 1
	fieldBatchName    protowire.Number = 2
	fieldBatchSamples protowire.Number = 3
	fieldBatchOffset  protowire.Number = 4
	fieldBatchTotal   protowire.Number = 5

	fieldSampleLat     protowire.Number = 1
	fieldSampleLon     protowire.Number = 2
	fieldSampleSeconds protowire.Number = 3
	fieldSampleNanos   protowire.Number = 4
)

// EncodeSampleBatch serialises a batch to protobuf wire format.
func EncodeSampleBatch(batch *domain.SampleBatch) []byte {
	b := make([]byte, 0, 16+len(batch.UserID)+len(batch.Name)+len(batch.Samples)*32)
	if batch.UserID != "" {
		b = protowire.AppendTag(b, fieldBatchUserID, protowire.BytesType)
		b = protowire.AppendString(b, batch.UserID)
	}
	if batch.Name != "" {
		b = protowire.AppendTag(b, fieldBatchName, protowire.BytesType)
		b = protowire.AppendString(b, batch.Name)
	}
	if batch.Offset > 0 {
		b = protowire.AppendTag(b, fieldBatchOffset, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(batch.Offset))
	}
	if batch.Total > 0 {
		b = protowire.AppendTag(b, fieldBatchTotal, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(batch.Total))
	}
	var sample []byte
	for _, s := range batch.Samples {
		sample = encodeSample(sample[:0], s)
		b = protowire.AppendTag(b, fieldBatchSamples, protowire.BytesType)
		b = protowire.AppendBytes(b, sample)
	}
	return b
}

func encodeSample(b []byte, s domain.PointSample) []byte {
	b = protowire.AppendTag(b, fieldSampleLat, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(s.Location.Lat))
	b = protowire.AppendTag(b, fieldSampleLon, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(s.Location.Lon))
	b = protowire.AppendTag(b, fieldSampleSeconds, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Time.Unix()))
	if nanos := s.Time.Nanosecond(); nanos != 0 {
		b = protowire.AppendTag(b, fieldSampleNanos, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(nanos))
	}
	return b
}

// DecodeSampleBatch parses a batch written by EncodeSampleBatch. Unknown
// fields are skipped. Sample times are returned in UTC.
func DecodeSampleBatch(b []byte) (*domain.SampleBatch, error) {
	batch := &domain.SampleBatch{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("decode batch tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldBatchUserID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("decode user_id: %w", protowire.ParseError(n))
			}
			batch.UserID = v
			b = b[n:]
		case num == fieldBatchName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("decode name: %w", protowire.ParseError(n))
			}
			batch.Name = v
			b = b[n:]
		case (num == fieldBatchOffset || num == fieldBatchTotal) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			if v > math.MaxInt32 {
				return nil, fmt.Errorf("field %d: value %d out of range", num, v)
			}
			if num == fieldBatchOffset {
				batch.Offset = int(v)
			} else {
				batch.Total = int(v)
			}
			b = b[n:]
		case num == fieldBatchSamples && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("decode sample: %w", protowire.ParseError(n))
			}
			s, err := decodeSample(v)
			if err != nil {
				return nil, fmt.Errorf("sample %d: %w", len(batch.Samples), err)
			}
			batch.Samples = append(batch.Samples, s)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return batch, nil
}

func decodeSample(b []byte) (domain.PointSample, error) {
	var s domain.PointSample
	var seconds int64
	var nanos int64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return s, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case (num == fieldSampleLat || num == fieldSampleLon) && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			if num == fieldSampleLat {
				s.Location.Lat = math.Float64frombits(v)
			} else {
				s.Location.Lon = math.Float64frombits(v)
			}
			b = b[n:]
		case (num == fieldSampleSeconds || num == fieldSampleNanos) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			if num == fieldSampleSeconds {
				seconds = int64(v)
			} else {
				nanos = int64(int32(v))
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return s, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	s.Time = time.Unix(seconds, nanos).UTC()
	return s, nil
}
