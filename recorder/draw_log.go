// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recorder

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/distlab/corefmt"
	"github.com/zintix-labs/distlab/errs"
)

// 單一 frame 解壓後的上限，防止讀到壞檔時無上限配置
const maxLogFrameBytes = 1 << 24 // 16 MiB

// 寫入端累積到這個大小就壓縮成一個 frame
const logChunkBytes = 1 << 16 // 64 KiB

// DrawLogWriter 把抽樣落點序列寫成壓縮紀錄檔
//
// 格式：每個 frame 是 zstd 壓縮後的 uvarint 序列，外層用
// corefmt 的 length-prefixed blob frame 包裝，方便串流續讀。
type DrawLogWriter struct {
	w   io.Writer
	enc *zstd.Encoder
	buf []byte
}

func NewDrawLogWriter(w io.Writer) (*DrawLogWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errs.Wrap(err, "new draw log writer failed")
	}
	return &DrawLogWriter{
		w:   w,
		enc: enc,
		buf: make([]byte, 0, logChunkBytes+binary.MaxVarintLen64),
	}, nil
}

// Append 追加一筆抽樣落點，必要時把累積的 chunk 壓縮寫出。
func (lw *DrawLogWriter) Append(idx int) error {
	if idx < 0 {
		return errs.Warnf("draw log: negative index %d", idx)
	}
	lw.buf = binary.AppendUvarint(lw.buf, uint64(idx))
	if len(lw.buf) >= logChunkBytes {
		return lw.Flush()
	}
	return nil
}

// Flush 把已累積的落點壓縮成一個 frame 寫出。
func (lw *DrawLogWriter) Flush() error {
	if len(lw.buf) == 0 {
		return nil
	}
	compressed := lw.enc.EncodeAll(lw.buf, nil)
	lw.buf = lw.buf[:0]
	return corefmt.WriteBlobFrame(lw.w, compressed)
}

// Close flush 剩餘資料並釋放壓縮器。
func (lw *DrawLogWriter) Close() error {
	if err := lw.Flush(); err != nil {
		return err
	}
	return lw.enc.Close()
}

// DrawLogReader 逐筆讀回 DrawLogWriter 寫出的紀錄檔。
type DrawLogReader struct {
	br      *bufio.Reader
	dec     *zstd.Decoder
	pending []byte
}

func NewDrawLogReader(r io.Reader) (*DrawLogReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errs.Wrap(err, "new draw log reader failed")
	}
	return &DrawLogReader{br: bufio.NewReader(r), dec: dec}, nil
}

// Next 回傳下一筆抽樣落點，讀完時回傳 io.EOF。
func (lr *DrawLogReader) Next() (int, error) {
	for len(lr.pending) == 0 {
		frame, err := corefmt.ReadBlobFrameFrom(lr.br, maxLogFrameBytes)
		if err != nil {
			return 0, err // io.EOF passthrough
		}
		chunk, err := lr.dec.DecodeAll(frame, nil)
		if err != nil {
			return 0, errs.Wrap(err, "decompress draw log frame failed")
		}
		lr.pending = chunk
	}

	v, n := binary.Uvarint(lr.pending)
	if n <= 0 {
		return 0, errs.NewFatal("draw log frame corrupted: invalid varint")
	}
	lr.pending = lr.pending[n:]
	return int(v), nil
}

// Replay 把整份紀錄檔重播進 DrawRecorder。
func (lr *DrawLogReader) Replay(rec *DrawRecorder) error {
	for {
		idx, err := lr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		rec.Record(idx)
	}
}

func (lr *DrawLogReader) Close() {
	lr.dec.Close()
}
