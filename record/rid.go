package record

import "fmt"

// RID identifies a stored record by cluster and position. It is immutable
// and comparable: two RIDs are equal iff both fields match.
type RID struct {
	Cluster  int16
	Position int64
}

// NewRID builds an RID from a cluster id and position.
func NewRID(cluster int16, position int64) RID {
	return RID{Cluster: cluster, Position: position}
}

func (r RID) String() string {
	return fmt.Sprintf("#%d:%d", r.Cluster, r.Position)
}

// IsValid reports whether the RID refers to a real record. OrientDB uses
// a negative cluster id to mark provisional/temporary positions that
// haven't been assigned a cluster yet.
func (r RID) IsValid() bool {
	return r.Cluster >= 0
}
