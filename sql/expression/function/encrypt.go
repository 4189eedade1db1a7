// Copyright 2025 Dolthub, Inc.
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

package function

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"

	"github.com/dolthub/go-query-analyzer/sql"
)

// encryption is encrypt / decrypt / aes_encrypt_mysql. The key and the
// initialization vector are secret arguments, hidden from projection names.
type encryption struct {
	builtin
}

var _ sql.SecretArgumentsFunction = (*encryption)(nil)

// SecretArguments implements the sql.SecretArgumentsFunction interface.
func (f *encryption) SecretArguments(args []sql.ArgumentColumn) (int, int) {
	if len(args) <= 2 {
		return 2, 0
	}
	return 2, len(args) - 2
}

// newEncryption returns fn(mode, data, key[, iv]). Only the aes-*-cbc modes
// are supported.
func newEncryption(name string, decrypting bool) sql.Function {
	return &encryption{builtin{
		name:           name,
		minArgs:        3,
		maxArgs:        4,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if err := checkStrings(name, args); err != nil {
				return nil, err
			}
			return sql.String, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			mode := args[0].(string)
			keySize, ok := map[string]int{"aes-128-cbc": 16, "aes-192-cbc": 24, "aes-256-cbc": 32}[mode]
			if !ok {
				return nil, sql.NewErr(sql.ErrBadArguments, "Invalid mode: %s", mode)
			}
			key := deriveKey(args[2].(string), keySize)
			iv := make([]byte, aes.BlockSize)
			if len(args) == 4 {
				copy(iv, args[3].(string))
			}
			block, err := aes.NewCipher(key)
			if err != nil {
				return nil, sql.ErrFunctionEval.New(name, err.Error())
			}
			data := []byte(args[1].(string))
			if decrypting {
				if len(data)%aes.BlockSize != 0 {
					return nil, sql.ErrFunctionEval.New(name, "ciphertext is not a multiple of the block size")
				}
				out := make([]byte, len(data))
				cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
				out, err = unpad(out)
				if err != nil {
					return nil, sql.ErrFunctionEval.New(name, err.Error())
				}
				return string(out), nil
			}
			data = pad(data)
			out := make([]byte, len(data))
			cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
			return string(out), nil
		},
	}}
}

func deriveKey(key string, size int) []byte {
	if len(key) == size {
		return []byte(key)
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:size]
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, sql.NewErr(sql.ErrBadArguments, "Invalid padding")
	}
	return data[:len(data)-n], nil
}
