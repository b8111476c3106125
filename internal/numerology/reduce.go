package numerology

// Master numbers are never broken down by Reduce.
const (
	Master11 = 11
	Master22 = 22
	Master33 = 33
)

// IsMaster reports whether n is one of the master numbers 11, 22 or 33.
func IsMaster(n int) bool {
	return n == Master11 || n == Master22 || n == Master33
}

// Reduce sums the digits of n until a single digit remains, stopping early
// when an intermediate value is a master number.
func Reduce(n int) int {
	if IsMaster(n) {
		return n
	}
	for n > 9 {
		n = digitSum(n)
		if IsMaster(n) {
			return n
		}
	}
	return n
}

// ForceReduce sums the digits of n until a single digit remains. Master
// numbers get no special treatment.
func ForceReduce(n int) int {
	for n > 9 {
		n = digitSum(n)
	}
	return n
}

func digitSum(n int) int {
	if n < 0 {
		n = -n
	}
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}
	return sum
}
