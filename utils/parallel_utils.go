package utils

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DynBuffer is an append only buffer whose storage survives Reset
type DynBuffer[T any] struct {
	cells []T
}

func NewDynBuffer[T any](capacity int) *DynBuffer[T] {
	return &DynBuffer[T]{cells: make([]T, 0, capacity)}
}

func (db *DynBuffer[T]) Add(cell T) { db.cells = append(db.cells, cell) }
func (db *DynBuffer[T]) Cells() []T { return db.cells }
func (db *DynBuffer[T]) Len() int { return len(db.cells) }
func (db *DynBuffer[T]) Reset() { db.cells = db.cells[:0] }

// MailBox exchanges messages between NP in-process endpoints. The pattern
// is: for range messages {Post}; Deliver; Receive. Every endpoint only
// touches its own queues, so different endpoints may post concurrently.
type MailBox[T any] struct {
	NP           int
	MessageChans []chan *DynBuffer[T]    // One for each endpoint
	PostMsgQs    []map[int]*DynBuffer[T] // One for each endpoint, key is target
	ReceiveMsgQs []*DynBuffer[T]         // One for each endpoint
	MailFlag     []bool                  // Endpoint has messages in outbox
}

func NewMailBox[T any](NP int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:           NP,
		MessageChans: make([]chan *DynBuffer[T], NP),
		PostMsgQs:    make([]map[int]*DynBuffer[T], NP),
		ReceiveMsgQs: make([]*DynBuffer[T], NP),
		MailFlag:     make([]bool, NP),
	}
	for n := 0; n < NP; n++ {
		mb.MessageChans[n] = make(chan *DynBuffer[T], NP) // Worst case is all-to-all
		mb.PostMsgQs[n] = make(map[int]*DynBuffer[T])
		mb.ReceiveMsgQs[n] = NewDynBuffer[T](0)
	}
	return mb
}

func (mb *MailBox[T]) PostMessage(from, to int, msg T) {
	var (
		exists bool
		tgt    *DynBuffer[T]
	)
	if to < 0 || to > mb.NP-1 {
		panic(fmt.Sprintf("target endpoint %d out of bounds", to))
	}
	if tgt, exists = mb.PostMsgQs[from][to]; !exists {
		tgt = NewDynBuffer[T](0)
		mb.PostMsgQs[from][to] = tgt
	}
	tgt.Add(msg)
	mb.MailFlag[from] = true
}

// DeliverMyMessages hands the outbox of from to the receivers. The outbox
// buffers are reset by the receiver once consumed.
func (mb *MailBox[T]) DeliverMyMessages(from int) {
	if !mb.MailFlag[from] {
		return
	}
	for to, msgBuffer := range mb.PostMsgQs[from] {
		if msgBuffer.Len() == 0 {
			continue
		}
		mb.MessageChans[to] <- msgBuffer
	}
	mb.MailFlag[from] = false
}

// ReceiveMyMessages drains everything delivered so far without blocking
// and returns the received messages.
func (mb *MailBox[T]) ReceiveMyMessages(me int) []T {
	for {
		select {
		case msgBuffer := <-mb.MessageChans[me]:
			for _, msg := range msgBuffer.Cells() {
				mb.ReceiveMsgQs[me].Add(msg)
			}
			msgBuffer.Reset() // Reset the originating buffer
		default:
			return mb.ReceiveMsgQs[me].Cells()
		}
	}
}

func (mb *MailBox[T]) ClearMyMessages(me int) {
	mb.ReceiveMsgQs[me].Reset()
}

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// Splits one dimension into ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// ParallelFor is a fork-join loop over [begin, end) with static chunking:
// the range is split into at most degree contiguous buckets, fn runs once
// per bucket and the call returns after every bucket finished. The first
// error of any bucket is returned.
func ParallelFor(begin, end, degree int, fn func(bucket, kMin, kMax int) error) error {
	var (
		n = end - begin
	)
	if n <= 0 {
		return nil
	}
	if degree > n {
		degree = n
	}
	if degree <= 1 {
		return fn(0, begin, end)
	}
	pm := NewPartitionMap(degree, n)
	var g errgroup.Group
	for bn := 0; bn < degree; bn++ {
		kMin, kMax := pm.GetBucketRange(bn)
		bn := bn
		g.Go(func() error {
			return fn(bn, begin+kMin, begin+kMax)
		})
	}
	return g.Wait()
}
