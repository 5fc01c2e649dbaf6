package model

import (
	"bytes"
	"encoding"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Persister はシリアライズ済みモデルのバイト列を保存・読み込みする
type Persister interface {
	Save(blob []byte) error
	Load() ([]byte, error)
}

// SaveModel は学習済みモデルをシリアライズして Persister に保存する
//
// 使用例:
//
//	forest, _ := ensemble.NewRandomForest()
//	// ... モデルの学習 ...
//	err := model.SaveModel(forest, model.NewFilesystem("forest.model", true))
func SaveModel(m encoding.BinaryMarshaler, p Persister) error {
	blob, err := m.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return p.Save(blob)
}

// LoadModel は Persister から読み込んだバイト列でモデルを復元する
//
// 使用例:
//
//	forest, _ := ensemble.NewRandomForest()
//	err := model.LoadModel(forest, model.NewFilesystem("forest.model", false))
func LoadModel(m encoding.BinaryUnmarshaler, p Persister) error {
	blob, err := p.Load()
	if err != nil {
		return err
	}
	if err := m.UnmarshalBinary(blob); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// EncodeGob は v を gob でエンコードする。推定器の MarshalBinary から使う
func EncodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "gob encode")
	}
	return buf.Bytes(), nil
}

// DecodeGob は EncodeGob の逆
func DecodeGob(blob []byte, v interface{}) error {
	return errors.Wrap(gob.NewDecoder(bytes.NewReader(blob)).Decode(v), "gob decode")
}

// Filesystem はファイルにモデルを保存する Persister
//
// History が有効な場合、上書き前のファイルを "<path>.<timestamp>.old" として残す。
type Filesystem struct {
	Path    string
	History bool
}

// NewFilesystem は新しい Filesystem を作成する
func NewFilesystem(path string, history bool) *Filesystem {
	return &Filesystem{Path: path, History: history}
}

// Save は一時ファイルに書き込んでからリネームする
func (f *Filesystem) Save(blob []byte) error {
	if f.History {
		if _, err := os.Stat(f.Path); err == nil {
			backup := fmt.Sprintf("%s.%d.old", f.Path, time.Now().UnixNano())
			if err := os.Rename(f.Path, backup); err != nil {
				return errors.Wrap(err, "failed to keep model history")
			}
		}
	}

	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write model")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to close file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.Path), "failed to move model into place")
}

// Load はファイル全体を読み込む
func (f *Filesystem) Load() ([]byte, error) {
	blob, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s", f.Path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	if len(blob) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s is empty", f.Path)
	}
	return blob, nil
}
