package dronesim

// radio-sched.go holds structs, methods and data structures that
// support scheduling of packet transmissions on the air interface,
// where the number of simultaneous grants is limited

// When a transmission is scheduled the caller specifies how much air time
// is required (in simulation time units), and a timeslice.  If the timeslice
// is larger than the requirement, the air time, when granted, is allocated
// all at once.  If the requirement exceeds the timeslice the transmission is
// given the timeslice amount of service, and the residual is rescheduled.
// Allocation of grants is first-come first-serve.

import (
	"container/heap"
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"math"
)

// txTask describes the air time requirements of one packet transmission
type txTask struct {
	OpType       string                    // what operation is being performed
	req          float64                   // required air time
	ts           float64                   // timeslice
	completeFunc evtm.EventHandlerFunction // call when finished
	context      any                       // remember this from caller, to return when finished
	Msg          any                       // information package being carried
}

// createTxTask is a constructor
func createTxTask(op string, req, ts float64, msg any, context any, complete evtm.EventHandlerFunction) *txTask {
	return &txTask{OpType: op, req: req, ts: ts, Msg: msg, context: context, completeFunc: complete}
}

// residualHeap and its methods implement a min-priority heap
// on the residual air time requirements of transmissions
type residualHeap []*txTask

func (h residualHeap) Len() int           { return len(h) }
func (h residualHeap) Less(i, j int) bool { return h[i].req < h[j].req }
func (h residualHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *residualHeap) Push(x any) {
	*h = append(*h, x.(*txTask))
}

func (h *residualHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// txScheduler holds data structures supporting the multi-grant scheduling
type txScheduler struct {
	grants    int          // number of simultaneous transmission grants
	waiting   []*txTask    // work to do, not in service
	inservice residualHeap // manage transmissions being served concurrently
}

// createTxScheduler is a constructor
func createTxScheduler(grants int) *txScheduler {
	txs := new(txScheduler)
	txs.grants = grants
	txs.waiting = []*txTask{}
	txs.inservice = []*txTask{}
	heap.Init(&txs.inservice)
	return txs
}

// schedule puts a transmission either in queue to be done, or in service.  Parameters are
// - op : a code for the type of work being done
// - req : the air time requirement for this transmission
// - ts  : timeslice, the amount of air time the transmission gets before yielding
// - msg : the packet being carried
// - complete : an event handler to be called when the transmission has completed
// The return is true if the 'transmission is finished' event was scheduled.
func (txs *txScheduler) schedule(evtMgr *evtm.EventManager, op string, req, ts float64,
	context any, msg any, complete evtm.EventHandlerFunction) bool {

	// create the txTask, and remember it
	task := createTxTask(op, req, ts, msg, context, complete)

	// either put into service or put in the waiting queue
	inservice := txs.joinGrant(evtMgr, task)

	// return flag indicating whether the transmission was placed immediately into service
	return inservice
}

// joinGrant is called to put a txTask into the data structure that governs
// allocation of air time
func (txs *txScheduler) joinGrant(evtMgr *evtm.EventManager, task *txTask) bool {
	// if all the grants are busy, put in the waiting queue and return
	if txs.grants <= len(txs.inservice) {
		txs.waiting = append(txs.waiting, task)
		return false
	}

	execute := task.ts
	finished := false
	if task.req <= task.ts {
		execute = task.req
		finished = true
	}
	// schedule event handler for when this timeslice completes
	evtMgr.Schedule(txs, finished, txSliceComplete, vrtime.SecondsToTime(execute))

	// if the transmission is going to complete we can schedule the event handler for the end
	if finished {
		evtMgr.Schedule(task.context, task.Msg, task.completeFunc, vrtime.SecondsToTime(task.req))
	}
	task.req = math.Max(task.req-task.ts, 0.0)
	heap.Push(&txs.inservice, task)
	return finished
}

// txSliceComplete is called when the timeslice allocated to a transmission has completed
func txSliceComplete(evtMgr *evtm.EventManager, context any, data any) any {
	txs := context.(*txScheduler)

	finished := data.(bool)

	// get first completing transmission of those in service
	taskAny := heap.Pop(&txs.inservice)
	task := taskAny.(*txTask)

	// if the waiting queue is not empty we need to put its first (FCFS) member into service
	if len(txs.waiting) > 0 {
		newtask := txs.waiting[0]
		txs.waiting = txs.waiting[1:]
		txs.joinGrant(evtMgr, newtask)
	}

	if finished {
		return nil
	}

	// task.req > 0.0 so schedule up another round of service
	txs.joinGrant(evtMgr, task)
	return nil
}
