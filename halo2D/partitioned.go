package halo2D

import (
	"fmt"

	"github.com/notargets/gosflow/grid2D"
	"github.com/notargets/gosflow/utils"
)

type strip struct {
	From   int
	Side   grid2D.Direction // Side of the receiving subdomain filled by this strip
	Values []float64        // Margin columns, each spanning the full j range
}

// Partitioned exchanges the interface columns of subdomains cut along i, one goroutine
// per rank. Every rank must call Exchange and Sum in the same sequence.
type Partitioned struct {
	Grids   []*grid2D.Grid
	mb      *utils.MailBox[*strip]
	barrier *utils.Barrier
	partial []float64
}

func NewPartitioned(grids []*grid2D.Grid) (pt *Partitioned) {
	NP := len(grids)
	for rank, g := range grids {
		if g.Rank != rank {
			panic(fmt.Errorf("grid at position %d carries rank %d", rank, g.Rank))
		}
		if g.Nx < g.Margin && NP > 1 {
			panic(fmt.Errorf("rank %d has %d columns, fewer than the halo margin %d", rank, g.Nx, g.Margin))
		}
		if g.Neighbors[grid2D.JMinus] >= 0 || g.Neighbors[grid2D.JPlus] >= 0 {
			panic(fmt.Errorf("rank %d: only partitions along i are supported", rank))
		}
	}
	pt = &Partitioned{
		Grids:   grids,
		mb:      utils.NewMailBox[*strip](NP),
		barrier: utils.NewBarrier(NP),
		partial: make([]float64, NP),
	}
	return
}

// Rank returns the exchanger used by the projector of one subdomain
func (pt *Partitioned) Rank(rank int) *RankExchanger {
	return &RankExchanger{
		pt:    pt,
		rank:  rank,
		local: NewLocal(pt.Grids[rank]),
	}
}

type RankExchanger struct {
	pt    *Partitioned
	rank  int
	local *Local
}

func (rx *RankExchanger) Exchange(f *grid2D.Slice, class grid2D.BCClass) {
	var (
		g  = rx.local.Grid
		mb = rx.pt.mb
	)
	// The pattern is: for range neighbours {Post}; Deliver; Wait; Receive; Wait
	for _, side := range []grid2D.Direction{grid2D.IMinus, grid2D.IPlus} {
		if nr := g.Neighbors[side]; nr >= 0 {
			mb.PostMessage(rx.rank, nr, &strip{
				From:   rx.rank,
				Side:   side.Opposite(),
				Values: rx.pack(f, side),
			})
		}
	}
	mb.DeliverMyMessages(rx.rank)
	rx.pt.barrier.Wait()
	mb.ReceiveMyMessages(rx.rank)
	for _, msg := range mb.ReceiveMsgQs[rx.rank].Cells() {
		rx.unpack(f, msg)
	}
	mb.ClearMyMessages(rx.rank)
	rx.pt.barrier.Wait()
	rx.local.Exchange(f, class)
}

// Sum adds v over all ranks. The partial sums are added in rank order so every rank
// gets the same value.
func (rx *RankExchanger) Sum(v float64) (sum float64) {
	pt := rx.pt
	pt.partial[rx.rank] = v
	pt.barrier.Wait()
	for _, p := range pt.partial {
		sum += p
	}
	pt.barrier.Wait()
	return
}

func (rx *RankExchanger) pack(f *grid2D.Slice, side grid2D.Direction) (values []float64) {
	var (
		g    = rx.local.Grid
		M    = g.Margin
		nj   = g.Ny + 2*M
		iBeg = 0
	)
	if side == grid2D.IPlus {
		iBeg = g.Nx - M
	}
	values = make([]float64, 0, M*nj)
	for q := 0; q < M; q++ {
		for j := -M; j < g.Ny+M; j++ {
			values = append(values, f.At(iBeg+q, j))
		}
	}
	return
}

func (rx *RankExchanger) unpack(f *grid2D.Slice, msg *strip) {
	var (
		g    = rx.local.Grid
		M    = g.Margin
		nj   = g.Ny + 2*M
		iBeg = -M
	)
	if len(msg.Values) != M*nj {
		panic(fmt.Errorf("rank %d: strip from rank %d has %d values, expected %d",
			rx.rank, msg.From, len(msg.Values), M*nj))
	}
	if msg.Side == grid2D.IPlus {
		iBeg = g.Nx
	}
	for q := 0; q < M; q++ {
		for jj := 0; jj < nj; jj++ {
			f.Set(iBeg+q, jj-M, msg.Values[q*nj+jj])
		}
	}
}
