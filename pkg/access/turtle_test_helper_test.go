package access

import "github.com/cuemby/podcore/pkg/rdf"

func parseTestTurtle(data []byte) (rdf.Graph, error) {
	codec, _ := rdf.Lookup("text/turtle")
	return codec.Decode(data)
}
