package malloc

import "sync"
import "testing"
import "math/rand"

import "github.com/bnclabs/stmgc/api"

func TestConcur(t *testing.T) {
	var wg sync.WaitGroup

	nroutines, repeat := 8, 20000
	area := NewSharedarea(&sync.Mutex{}, testsettings())
	allocs := make([]*Localalloc, nroutines)
	for n := range allocs {
		allocs[n] = area.Newlocalalloc()
	}
	wg.Add(nroutines)
	for n := 0; n < nroutines; n++ {
		go testallocator(t, allocs[n], int64(n), repeat, &wg)
	}
	wg.Wait()

	for _, alloc := range allocs {
		alloc.Giftpages()
	}
	if x, y := accounted(area), area.Used(); x != y {
		t.Errorf("expected %v, got %v", x, y)
	}
	area.Sweep(func(api.Ref) bool { return false })
	if x := area.Used(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
}

func testallocator(
	t *testing.T, alloc *Localalloc, seed int64, repeat int,
	wg *sync.WaitGroup) {

	defer wg.Done()

	type live struct {
		obj  api.Ref
		size int64
	}
	space := alloc.Sharedarea().Space()
	rnd := rand.New(rand.NewSource(seed))
	lives := make([]live, 0, 1024)
	for i := 0; i < repeat; i++ {
		if len(lives) > 512 {
			n := rnd.Intn(len(lives))
			alloc.Freeobject(lives[n].obj, lives[n].size)
			lives[n] = lives[len(lives)-1]
			lives = lives[:len(lives)-1]
		}
		size := int64(16 + rnd.Intn(400))
		obj, err := alloc.Mallocobject(size)
		if err != nil {
			t.Errorf("unexpected %v", err)
			return
		}
		*space.Word(obj) = api.Packheader(uint32(seed), 0)
		lives = append(lives, live{obj, size})
	}
	for _, l := range lives {
		if typeid, _ := api.Unpackheader(*space.Word(l.obj)); typeid != uint32(seed) {
			t.Errorf("object %x clobbered by %v", uint64(l.obj), typeid)
		}
	}
}
