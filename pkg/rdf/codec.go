package rdf

// Codec serializes and parses a Graph in one RDF concrete syntax.
type Codec interface {
	ContentType() string
	Encode(g Graph) ([]byte, error)
	Decode(data []byte) (Graph, error)
}

// Codecs is the registry of codecs the storage service negotiates content
// type against.
var Codecs = map[string]Codec{
	"text/turtle": TurtleCodec{},
}

// Lookup returns the codec registered for contentType, if any.
func Lookup(contentType string) (Codec, bool) {
	c, ok := Codecs[contentType]
	return c, ok
}
