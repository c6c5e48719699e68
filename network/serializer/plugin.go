package serializer

import (
	"fmt"

	"github.com/linchenxuan/strixwire/plugin"
)

// Compressor is a compressor plugin.
type Compressor interface {
	plugin.Plugin
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// Encryptor is an encryptor plugin.
type Encryptor interface {
	plugin.Plugin
	Encrypt(src []byte) ([]byte, error)
	Decrypt(src []byte) ([]byte, error)
}

// CompressStage adapts a Compressor to a Stage.
func CompressStage(c Compressor) Stage {
	return Stage{Forward: c.Compress, Reverse: c.Decompress}
}

// EncryptStage adapts an Encryptor to a Stage.
func EncryptStage(e Encryptor) Stage {
	return Stage{Forward: e.Encrypt, Reverse: e.Decrypt}
}

// FromPlugins assembles a serializer from plugins set up in mgr. Names are
// plugin names or tags; an empty name leaves that stage as NopStage.
func FromPlugins(mgr *plugin.Manager, compressorName, encryptorName string) (*Serializer, error) {
	compress := NopStage
	if compressorName != "" {
		p, err := mgr.GetPlugin(plugin.Compressor, compressorName)
		if err != nil {
			return nil, err
		}
		c, ok := p.(Compressor)
		if !ok {
			return nil, fmt.Errorf("plugin %s/%s is %T, not a compressor", plugin.Compressor, compressorName, p)
		}
		compress = CompressStage(c)
	}

	encrypt := NopStage
	if encryptorName != "" {
		p, err := mgr.GetPlugin(plugin.Encryptor, encryptorName)
		if err != nil {
			return nil, err
		}
		e, ok := p.(Encryptor)
		if !ok {
			return nil, fmt.Errorf("plugin %s/%s is %T, not an encryptor", plugin.Encryptor, encryptorName, p)
		}
		encrypt = EncryptStage(e)
	}
	return New(compress, WithEncryption(encrypt)), nil
}
