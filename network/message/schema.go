package message

import (
	"fmt"
	"os"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// wellKnownPrefix marks files shipped with protobuf itself. They may appear in
// a descriptor set built with --include_imports but never carry game messages.
const wellKnownPrefix = "google/protobuf/"

// LoadDescriptorSets reads FileDescriptorSet files, as written by
// `protoc --include_imports --descriptor_set_out`, and returns their schema
// files in declaration order. Files of the protobuf distribution are resolved
// but not returned.
func LoadDescriptorSets(paths ...string) ([]protoreflect.FileDescriptor, error) {
	var files []protoreflect.FileDescriptor
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read descriptor set: %w", err)
		}
		fds, err := ParseDescriptorSet(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		files = append(files, fds...)
	}
	return files, nil
}

// ParseDescriptorSet decodes one serialized FileDescriptorSet.
func ParseDescriptorSet(data []byte) ([]protoreflect.FileDescriptor, error) {
	set := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("parse descriptor set: %w", err)
	}
	reg, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("resolve descriptor set: %w", err)
	}

	files := make([]protoreflect.FileDescriptor, 0, len(set.GetFile()))
	for _, fdp := range set.GetFile() {
		if strings.HasPrefix(fdp.GetName(), wellKnownPrefix) {
			continue
		}
		fd, err := reg.FindFileByPath(fdp.GetName())
		if err != nil {
			return nil, err
		}
		files = append(files, fd)
	}
	return files, nil
}
