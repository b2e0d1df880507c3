// Produces the answer_hash for seeding a bounty row. The answer is
// normalized exactly like the server-side check, so seed with this tool
// rather than hashing by hand.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/riddle-labs/bountyd/x/commit"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: hash-answer <answer>")
	}
	answer := strings.Join(os.Args[1:], " ")
	fmt.Println(commit.Commit(answer))
}
