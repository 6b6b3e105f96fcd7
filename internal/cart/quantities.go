package cart

import "sort"

// Quantities отображает идентификатор товара в положительное количество.
// Ключ существует только при количестве больше нуля.
type Quantities struct {
	m map[string]int
}

func newQuantities() Quantities {
	return Quantities{m: make(map[string]int)}
}

// Get возвращает количество товара или ноль.
func (q Quantities) Get(id string) int {
	return q.m[id]
}

// Set устанавливает количество; неположительное значение удаляет ключ.
func (q Quantities) Set(id string, n int) {
	if n <= 0 {
		delete(q.m, id)
		return
	}
	q.m[id] = n
}

// Len возвращает число различных товаров.
func (q Quantities) Len() int {
	return len(q.m)
}

// Keys возвращает идентификаторы товаров в лексикографическом порядке.
func (q Quantities) Keys() []string {
	keys := make([]string, 0, len(q.m))
	for k := range q.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot возвращает копию отображения.
func (q Quantities) Snapshot() map[string]int {
	out := make(map[string]int, len(q.m))
	for k, v := range q.m {
		out[k] = v
	}
	return out
}
