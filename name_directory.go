package namedmsg

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/hashicorp/go-metrics"
	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
	"github.com/raskyld/namedmsg/pkg/wire"
	"google.golang.org/protobuf/proto"
)

// nameDirectory is an eventually consistent radix tree telling, for each
// endpoint name, which node owns it.
//
// Every node is authoritative for its own claims: it stamps them with a
// local monotonic clock so the rest of the cluster can drop stale ones.
// When several nodes claim the same name, the lexicographically smallest
// node name owns it.
type nameDirectory struct {
	d  *iradix.Tree
	lk sync.RWMutex

	// a local monotonic clock to order our local changes.
	clock uint64

	logger        *slog.Logger
	msink         metrics.MetricSink
	labels        []metrics.Label
	localNodeName string

	// onEvict is called, without the lock held, with the names the local
	// node lost to another claimant.
	onEvict func(name string)
}

type nameRecord struct {
	owner   string
	history map[string]*namedmsgv1alpha1.NameClaim
}

func newNameDir(logger *slog.Logger, msink metrics.MetricSink, labels []metrics.Label, localNodeName string) *nameDirectory {
	if msink == nil {
		msink = &metrics.BlackholeSink{}
	}
	return &nameDirectory{
		d:             iradix.New(),
		logger:        logger,
		msink:         msink,
		labels:        labels,
		localNodeName: localNodeName,
	}
}

func (dir *nameDirectory) get(name string) (*nameRecord, bool) {
	raw, has := dir.d.Get([]byte(name))
	if !has {
		return nil, false
	}
	return raw.(*nameRecord), true
}

func (dir *nameDirectory) resolve(name string) (string, *namedmsgv1alpha1.NameClaim, error) {
	dir.lk.RLock()
	defer dir.lk.RUnlock()
	currentNode, has := dir.get(name)
	if !has {
		return "", nil, ErrNameResolution
	}

	if len(currentNode.owner) > 0 {
		return currentNode.owner, currentNode.history[currentNode.owner], nil
	}

	return "", nil, ErrNameResolution
}

func (dir *nameDirectory) scan(prefix string) (found []string, err error) {
	dir.lk.RLock()
	defer dir.lk.RUnlock()
	dir.d.Root().WalkPrefix([]byte(prefix), func(k []byte, v interface{}) bool {
		if len(v.(*nameRecord).owner) > 0 {
			found = append(found, string(k))
		}
		return false
	})

	if len(found) == 0 {
		err = ErrNameResolution
	}
	return
}

// record applies claim to the directory.
//
// Synchronous records are local claims: their revision is stamped from our
// clock and a claim on a name owned by somebody else fails with
// `ErrNameConflict` instead of entering a conflict.
func (dir *nameDirectory) record(claim *namedmsgv1alpha1.NameClaim, synchronous bool) error {
	if err := wire.ValidateClaim(claim); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}
	if !synchronous && claim.Rev == 0 {
		return fmt.Errorf("%w: remote claim without revision", ErrInvalidClaim)
	}

	evicted := false
	defer func() {
		if evicted && dir.onEvict != nil {
			dir.onEvict(claim.Endpoint)
		}
	}()

	dir.lk.Lock()
	defer dir.lk.Unlock()

	name := claim.Endpoint
	claimant := claim.Node
	currentNode, has := dir.get(name)

	if synchronous {
		if has && claim.Mode == namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM &&
			currentNode.owner != "" && currentNode.owner != claimant {
			return ErrNameConflict
		}
		dir.clock = dir.clock + 1
		claim.Rev = dir.clock
	}

	if !has {
		record := &nameRecord{
			history: map[string]*namedmsgv1alpha1.NameClaim{
				claimant: claim,
			},
		}
		if claim.Mode == namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM {
			record.owner = claimant
		}
		dir.d, _, _ = dir.d.Insert([]byte(name), record)
		return nil
	}

	if history, hasHistory := currentNode.history[claimant]; hasHistory && history.Rev >= claim.Rev {
		dir.logger.Debug(
			"ignoring stale claim",
			LabelEndpointName.L(name),
			LabelPeerName.L(claimant),
		)
		return nil
	}
	currentNode.history[claimant] = claim

	previous := currentNode.owner
	claimants := currentNode.claimants()
	if len(claimants) > 1 {
		dir.msink.IncrCounterWithLabels(
			MetricNameConflictCount,
			1.0,
			withLabels(dir.labels, LabelEndpointName.M(name)),
		)
		dir.logger.Warn(
			"endpoint name conflict, smallest node name wins",
			LabelEndpointName.L(name),
			"claimants", claimants,
		)
	}

	if len(claimants) > 0 {
		currentNode.owner = claimants[0]
	} else {
		currentNode.owner = ""
	}

	evicted = previous == dir.localNodeName &&
		currentNode.owner != dir.localNodeName &&
		claimant != dir.localNodeName
	return nil
}

// forget drops every claim of node, typically because it left the cluster.
func (dir *nameDirectory) forget(node string) {
	dir.lk.Lock()
	defer dir.lk.Unlock()
	dir.d.Root().Walk(func(k []byte, v interface{}) bool {
		record := v.(*nameRecord)
		if _, has := record.history[node]; !has {
			return false
		}
		delete(record.history, node)
		if record.owner == node {
			record.owner = ""
			if claimants := record.claimants(); len(claimants) > 0 {
				record.owner = claimants[0]
			}
		}
		return false
	})
}

// localClaims returns a copy of every claim made by the local node, used
// for full state synchronisation.
func (dir *nameDirectory) localClaims() (claims []*namedmsgv1alpha1.NameClaim) {
	dir.lk.RLock()
	defer dir.lk.RUnlock()
	dir.d.Root().Walk(func(k []byte, v interface{}) bool {
		if claim, has := v.(*nameRecord).history[dir.localNodeName]; has {
			claims = append(claims, proto.Clone(claim).(*namedmsgv1alpha1.NameClaim))
		}
		return false
	})
	return
}

// claimants are sorted so the first one owns the name.
func (record *nameRecord) claimants() []string {
	var claimants []string
	for node, claim := range record.history {
		if claim.Mode == namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM {
			claimants = append(claimants, node)
		}
	}
	sort.Strings(claimants)
	return claimants
}
